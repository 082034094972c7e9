package setup

import (
	"context"
	"testing"

	"github.com/maeven-tapa/eals/core/coretest"
	"github.com/maeven-tapa/eals/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstRunShowsWelcomeOnce(t *testing.T) {
	dm := coretest.Open(t)
	o := New(dm, nil)
	ctx := context.Background()

	w, err := o.Run(ctx)
	require.NoError(t, err)
	assert.True(t, w.FirstRun)
	assert.Equal(t, model.BootstrapAdminID, w.AdminID)
	assert.Len(t, w.Password, 8)
	require.Len(t, w.Pages, 2)
	assert.Contains(t, w.Pages[1].Body, w.Password)

	assert.True(t, o.Pending())
	taken, ok := o.Take()
	require.True(t, ok)
	assert.Equal(t, w, taken)

	assert.False(t, o.Pending())
	_, ok = o.Take()
	assert.False(t, ok)
}

func TestLaterRunsSkipWelcome(t *testing.T) {
	dm := coretest.Open(t)
	ctx := context.Background()

	_, err := New(dm, nil).Run(ctx)
	require.NoError(t, err)

	o := New(dm, nil)
	w, err := o.Run(ctx)
	require.NoError(t, err)
	assert.False(t, w.FirstRun)
	assert.Empty(t, w.Pages)
	assert.False(t, o.Pending())
}
