package attendance

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/core/coretest"
	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var manila = time.FixedZone("PHT", 8*60*60)

type recordingJournal struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingJournal) Record(_ context.Context, entity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entity+": "+message)
}

func at(day, hour, min int) time.Time {
	return time.Date(2024, 5, day, hour, min, 0, 0, manila)
}

func seed(t *testing.T, dm *core.DatabaseManager, emps ...model.Employee) {
	t.Helper()
	require.NoError(t, dm.Exec(context.Background(), func(db *gorm.DB) error {
		for i := range emps {
			e := emps[i]
			if e.Status == "" {
				e.Status = model.StatusActive
			}
			if e.FirstName == "" {
				e.FirstName = "Given" + e.EmployeeID
				e.LastName = "Family" + e.EmployeeID
			}
			e.DateOfBirth = datatypes.Date(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
			e.PasswordHash = "x"
			if err := db.Create(&e).Error; err != nil {
				return err
			}
		}
		return nil
	}))
}

func newEngine(t *testing.T) (*Engine, *core.DatabaseManager, *recordingJournal) {
	dm := coretest.Open(t)
	j := &recordingJournal{}
	return NewEngine(dm, WithLocation(manila), WithJournal(j)), dm, j
}

func remarks(rows []model.AttendanceLog) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Remarks
	}
	return out
}

func TestMorningShiftDay(t *testing.T) {
	e, dm, j := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "ACC-24-0007", Shift: schedule.Morning})
	ctx := context.Background()

	d, err := e.Request(ctx, "ACC-24-0007", at(1, 7, 30), false)
	require.NoError(t, err)
	assert.Equal(t, StateStart, d.State)
	assert.Equal(t, OutcomeClockIn, d.Outcome)
	assert.True(t, d.Recorded)
	assert.Equal(t, "07:30:00", d.Log.Time)

	// declined early clock-out
	d, err = e.Request(ctx, "ACC-24-0007", at(1, 10, 0), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEarlyClockout, d.Outcome)
	assert.True(t, d.Warning())
	assert.Equal(t, 150*time.Minute, d.Elapsed)

	rows, err := e.Day(ctx, "ACC-24-0007", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, []string{model.RemarksClockIn}, remarks(rows))

	// confirmed early clock-out
	d, err = e.Request(ctx, "ACC-24-0007", at(1, 10, 0), true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClockOut, d.Outcome)
	assert.True(t, d.Early)
	assert.True(t, d.Recorded)

	// second cycle, outside the shift window
	d, err = e.Request(ctx, "ACC-24-0007", at(1, 15, 30), false)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, d.State)
	assert.Equal(t, OutcomeClockIn, d.Outcome)

	rows, err = e.Day(ctx, "ACC-24-0007", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, []string{model.RemarksClockIn, model.RemarksClockOut, model.RemarksClockIn}, remarks(rows))

	assert.Len(t, j.entries, 3)
	assert.Contains(t, j.entries[1], "early")
}

func TestClockOutAfterFullShift(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "ACC-24-0008", Shift: schedule.Morning})
	ctx := context.Background()

	_, err := e.Request(ctx, "ACC-24-0008", at(1, 6, 0), false)
	require.NoError(t, err)

	d, err := e.Request(ctx, "ACC-24-0008", at(1, 14, 0), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClockOut, d.Outcome)
	assert.False(t, d.Early)
	assert.True(t, d.Recorded)
	assert.Equal(t, 8*time.Hour, d.Elapsed)
}

func TestDecisionJSONElapsed(t *testing.T) {
	d := Decision{EmployeeID: "ACC-24-0008", Outcome: OutcomeEarlyClockout, Elapsed: 150*time.Minute + 42*time.Second}

	out, err := json.Marshal(d)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "2h30m42s", got["elapsed"])
	assert.Equal(t, float64(150), got["elapsedMinutes"])
	assert.Equal(t, "ACC-24-0008", got["employeeId"])
	assert.Equal(t, "EARLY_CLOCKOUT_WARNING", got["outcome"])

	out, err = json.Marshal(&d)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"elapsed":"2h30m42s"`)
}

func TestOutOfShift(t *testing.T) {
	e, dm, j := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "ACC-24-0009", Shift: schedule.Afternoon})
	ctx := context.Background()

	_, err := e.Request(ctx, "ACC-24-0009", at(1, 9, 0), false)
	assert.Equal(t, apperror.CodeOutOfShift, apperror.GetCode(err))

	rows, err := e.Day(ctx, "ACC-24-0009", "2024-05-01")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, j.entries)
}

func TestNightShiftDatesAreIndependent(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "NGT-24-0001", Shift: schedule.Night})
	ctx := context.Background()

	d, err := e.Request(ctx, "NGT-24-0001", at(1, 23, 15), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClockIn, d.Outcome)
	assert.Equal(t, "2024-05-01", d.Date)

	d, err = e.Request(ctx, "NGT-24-0001", at(2, 5, 30), false)
	require.NoError(t, err)
	assert.Equal(t, StateStart, d.State)
	assert.Equal(t, OutcomeClockIn, d.Outcome)
	assert.Equal(t, "2024-05-02", d.Date)

	day1, err := e.Day(ctx, "NGT-24-0001", "2024-05-01")
	require.NoError(t, err)
	day2, err := e.Day(ctx, "NGT-24-0001", "2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, []string{model.RemarksClockIn}, remarks(day1))
	assert.Equal(t, []string{model.RemarksClockIn}, remarks(day2))
}

func TestLocalDateKeysTheDay(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "ACC-24-0010", Shift: schedule.Morning})

	// 23:30 UTC on April 30 is 07:30 on May 1 in Manila
	d, err := e.Request(context.Background(), "ACC-24-0010", time.Date(2024, 4, 30, 23, 30, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", d.Date)
	assert.Equal(t, "07:30:00", d.Log.Time)
}

func TestDecideThenCommit(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "ACC-24-0011", Shift: schedule.Morning})
	ctx := context.Background()

	pending, err := e.Decide(ctx, "ACC-24-0011", at(1, 7, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeClockIn, pending.Outcome)
	assert.False(t, pending.Recorded)

	rows, err := e.Day(ctx, "ACC-24-0011", "2024-05-01")
	require.NoError(t, err)
	assert.Empty(t, rows)

	d, err := e.Commit(ctx, pending, false)
	require.NoError(t, err)
	assert.True(t, d.Recorded)

	// committing the same decision again would record a second Clock In
	_, err = e.Commit(ctx, pending, false)
	assert.Equal(t, apperror.CodeConflict, apperror.GetCode(err))

	early, err := e.Decide(ctx, "ACC-24-0011", at(1, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeEarlyClockout, early.Outcome)

	d, err = e.Commit(ctx, early, false)
	require.NoError(t, err)
	assert.False(t, d.Recorded)

	d, err = e.Commit(ctx, early, true)
	require.NoError(t, err)
	assert.True(t, d.Recorded)
	assert.Equal(t, OutcomeClockOut, d.Outcome)
}

func TestClockInIfAbsent(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "HRD-24-0001", Shift: schedule.Morning, IsHR: true,
		Department: model.HRDepartment, Position: model.HRPosition})
	ctx := context.Background()

	d, err := e.ClockInIfAbsent(ctx, "HRD-24-0001", at(1, 8, 0))
	require.NoError(t, err)
	assert.True(t, d.Recorded)

	d, err = e.ClockInIfAbsent(ctx, "HRD-24-0001", at(1, 9, 0))
	require.NoError(t, err)
	assert.False(t, d.Recorded)
	assert.Equal(t, OutcomeNone, d.Outcome)

	rows, err := e.Day(ctx, "HRD-24-0001", "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClockOutIfOpen(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "ACC-24-0012", Shift: schedule.Morning})
	ctx := context.Background()

	d, err := e.ClockOutIfOpen(ctx, "ACC-24-0012", at(1, 9, 0))
	require.NoError(t, err)
	assert.False(t, d.Recorded)

	_, err = e.Request(ctx, "ACC-24-0012", at(1, 7, 0), false)
	require.NoError(t, err)

	d, err = e.ClockOutIfOpen(ctx, "ACC-24-0012", at(1, 9, 0))
	require.NoError(t, err)
	assert.True(t, d.Recorded)
	assert.True(t, d.Early)
	assert.Equal(t, model.RemarksClockOut, d.Log.Remarks)
}

func TestUnknownAndInactiveEmployees(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "ACC-24-0013", Shift: schedule.Morning, Status: model.StatusInactive})
	ctx := context.Background()

	_, err := e.Request(ctx, "ACC-24-9999", at(1, 7, 0), false)
	assert.Equal(t, apperror.CodeNoSuchPrincipal, apperror.GetCode(err))

	_, err = e.Request(ctx, "ACC-24-0013", at(1, 7, 0), false)
	assert.Equal(t, apperror.CodeInactive, apperror.GetCode(err))
}

// For any sequence of requests every day reads (Clock In, Clock Out)* (Clock In)?.
func TestAlternationHoldsForRandomRequests(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "RND-24-0001", Shift: schedule.Night})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	now := at(1, 0, 0)
	for i := 0; i < 120; i++ {
		now = now.Add(time.Duration(rng.Intn(6*60)+1) * time.Minute)
		_, err := e.Request(ctx, "RND-24-0001", now, rng.Intn(2) == 0)
		if err != nil {
			require.Equal(t, apperror.CodeOutOfShift, apperror.GetCode(err))
		}
	}

	rows, err := e.Logs(ctx, LogFilter{EmployeeID: "RND-24-0001"})
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	byDate := map[string][]string{}
	for i := len(rows) - 1; i >= 0; i-- {
		byDate[rows[i].Date] = append(byDate[rows[i].Date], rows[i].Remarks)
	}
	for date, seq := range byDate {
		for i, r := range seq {
			want := model.RemarksClockIn
			if i%2 == 1 {
				want = model.RemarksClockOut
			}
			assert.Equal(t, want, r, "date %s position %d", date, i)
		}
	}
}

func TestConcurrentRequestsKeepAlternation(t *testing.T) {
	e, dm, _ := newEngine(t)
	seed(t, dm, model.Employee{EmployeeID: "CNC-24-0001", Shift: schedule.Morning})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Request(ctx, "CNC-24-0001", at(1, 7, 0), true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := e.Day(ctx, "CNC-24-0001", "2024-05-01")
	require.NoError(t, err)
	require.Len(t, rows, 10)
	for i, r := range rows {
		if i%2 == 0 {
			assert.Equal(t, model.RemarksClockIn, r.Remarks)
		} else {
			assert.Equal(t, model.RemarksClockOut, r.Remarks)
		}
	}
}
