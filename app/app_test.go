package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/maeven-tapa/eals/app/apptest"
	"github.com/maeven-tapa/eals/attendance"
	"github.com/maeven-tapa/eals/auth"
	"github.com/maeven-tapa/eals/employees"
	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var manila = time.FixedZone("PHT", 8*60*60)

func TestFirstStartThenEmployeeDay(t *testing.T) {
	h := apptest.New(t, time.Date(2024, 5, 1, 7, 0, 0, 0, time.Local))
	ctx := context.Background()

	w, err := h.Start(ctx)
	require.NoError(t, err)
	assert.True(t, w.FirstRun)
	assert.True(t, h.Setup.Pending())

	res, err := h.Auth.Authenticate(ctx, w.AdminID, w.Password)
	require.NoError(t, err)
	assert.Equal(t, auth.RouteChangePassword, res.Route)

	res, err = h.Auth.ChangePassword(ctx, w.AdminID, res.ChangeTicket, "Secret123", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, auth.RouteAdminSession, res.Route)
	assert.NotEmpty(t, res.Token)

	emp, err := h.Employees.Enroll(ctx, employees.Input{
		FirstName:   "Maria",
		LastName:    "Santos",
		DateOfBirth: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		Gender:      "Female",
		Department:  "Accounting",
		Position:    "Clerk",
		Shift:       schedule.Morning,
		Email:       "maria@example.com",
	}, "ACC", w.AdminID)
	require.NoError(t, err)

	res, err = h.Auth.Authenticate(ctx, emp.EmployeeID, "SANTOS")
	require.NoError(t, err)
	require.Equal(t, auth.RouteChangePassword, res.Route)

	res, err = h.Auth.ChangePassword(ctx, emp.EmployeeID, res.ChangeTicket, "hunter2AA", "hunter2AA")
	require.NoError(t, err)
	require.Equal(t, auth.RouteBioConfirmation, res.Route)
	assert.Equal(t, attendance.OutcomeClockIn, res.Attendance.Outcome)

	d, err := h.Auth.ConfirmAttendance(ctx, emp.EmployeeID, false)
	require.NoError(t, err)
	assert.True(t, d.Recorded)

	logs, err := h.Attendance.Logs(ctx, attendance.LogFilter{EmployeeID: emp.EmployeeID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.RemarksClockIn, logs[0].Remarks)

	days, err := h.Journal.Days(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, days)
}

func TestSecondStartIsQuiet(t *testing.T) {
	h := apptest.New(t, time.Date(2024, 5, 1, 7, 0, 0, 0, manila))
	ctx := context.Background()

	_, err := h.Start(ctx)
	require.NoError(t, err)
	h.Backup.Stop()

	w, err := h.Start(ctx)
	require.NoError(t, err)
	assert.False(t, w.FirstRun)
}
