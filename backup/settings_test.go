package backup

import (
	"context"
	"testing"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core/coretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitSpan(t *testing.T) {
	assert.Equal(t, 3*time.Hour, UnitHours.Span(3))
	assert.Equal(t, 48*time.Hour, UnitDays.Span(2))
	assert.Equal(t, 14*24*time.Hour, UnitWeeks.Span(2))
	assert.Equal(t, 30*24*time.Hour, UnitMonths.Span(1))
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
		ok   bool
	}{
		{in: "Hours", want: UnitHours, ok: true},
		{in: "day", want: UnitDays, ok: true},
		{in: " WEEKS ", want: UnitWeeks, ok: true},
		{in: "Month", want: UnitMonths, ok: true},
		{in: "Years"},
		{in: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnit(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	dm := coretest.Open(t)
	ctx := context.Background()

	p, row, err := LoadSettings(ctx, dm)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, row)

	require.NoError(t, SaveSettings(ctx, dm, Policy{Frequency: 1, Unit: "days"}, "admin-01-0001"))
	require.NoError(t, SaveSettings(ctx, dm, Policy{
		Frequency:          6,
		Unit:               UnitHours,
		RetentionEnabled:   true,
		RetentionFrequency: 1,
		RetentionUnit:      UnitMonths,
	}, "ACC-24-0002"))

	p, row, err = LoadSettings(ctx, dm)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 6*time.Hour, p.Cadence())
	assert.Equal(t, 30*24*time.Hour, p.Window())
	assert.Equal(t, "admin-01-0001", row.CreatedBy)
	assert.Equal(t, "ACC-24-0002", row.ModifiedBy)
}

func TestSaveSettingsValidates(t *testing.T) {
	dm := coretest.Open(t)
	err := SaveSettings(context.Background(), dm, Policy{Frequency: 0, Unit: "Years", RetentionEnabled: true}, "admin")
	assert.Equal(t, apperror.CodeValidation, apperror.GetCode(err))
}
