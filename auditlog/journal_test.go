package auditlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core/coretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func TestRecordWritesLineAndDayRow(t *testing.T) {
	dm := coretest.Open(t)
	dir := filepath.Join(t.TempDir(), "logs")
	clock := &fakeClock{t: time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)}
	j := New(dm, dir, clock.Now, WithLocation(time.UTC))
	ctx := context.Background()

	j.Record(ctx, "ACC-24-0007", "ACC-24-0007 clocked in")
	clock.t = clock.t.Add(3 * time.Hour)
	j.Record(ctx, "admin-01-0001", "admin-01-0001 logged in")

	text, err := j.Read("20240501")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-05-01T07:30:00Z - ACC-24-0007 clocked in", lines[0])
	assert.Equal(t, "2024-05-01T10:30:00Z - admin-01-0001 logged in", lines[1])

	days, err := j.Days(ctx)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "20240501", days[0].Date)
	assert.Equal(t, filepath.Join(dir, "20240501.txt"), days[0].Path)
	assert.Equal(t, "ACC-24-0007", days[0].EntityStarted)
	assert.Equal(t, "admin-01-0001", days[0].StoppedToTheEntity)
	assert.True(t, days[0].LastModifiedAt.After(days[0].CreatedAt))
}

func TestRecordStartsNewDay(t *testing.T) {
	dm := coretest.Open(t)
	clock := &fakeClock{t: time.Date(2024, 5, 1, 23, 15, 0, 0, time.UTC)}
	j := New(dm, t.TempDir(), clock.Now, WithLocation(time.UTC))
	ctx := context.Background()

	j.Record(ctx, "NGT-24-0001", "first")
	clock.t = clock.t.Add(time.Hour)
	j.Record(ctx, "NGT-24-0002", "second")

	days, err := j.Days(ctx)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "20240502", days[0].Date)
	assert.Equal(t, "NGT-24-0002", days[0].EntityStarted)
	assert.Equal(t, "20240501", days[1].Date)
}

func TestRecordSwallowsFailures(t *testing.T) {
	dm := coretest.Open(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	j := New(dm, blocker, nil)
	assert.NotPanics(t, func() {
		j.Record(context.Background(), "x", "cannot be written")
	})

	days, err := j.Days(context.Background())
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestReadValidatesDay(t *testing.T) {
	j := New(coretest.Open(t), t.TempDir(), nil)

	_, err := j.Read("../../etc/passwd")
	assert.Equal(t, apperror.CodeValidation, apperror.GetCode(err))

	_, err = j.Read("20240101")
	assert.Equal(t, apperror.CodeNotFound, apperror.GetCode(err))
}

func TestRecordKeysDayInConfiguredZone(t *testing.T) {
	dm := coretest.Open(t)
	manila := time.FixedZone("PHT", 8*60*60)
	// 17:30 UTC on 1 May is 01:30 on 2 May in Manila
	clock := &fakeClock{t: time.Date(2024, 5, 1, 17, 30, 0, 0, time.UTC)}
	j := New(dm, t.TempDir(), clock.Now, WithLocation(manila))
	ctx := context.Background()

	j.Record(ctx, "NGT-24-0001", "NGT-24-0001 clocked out")

	text, err := j.Read("20240502")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02T01:30:00+08:00 - NGT-24-0001 clocked out\n", text)

	_, err = j.Read("20240501")
	assert.Equal(t, apperror.CodeNotFound, apperror.GetCode(err))
}
