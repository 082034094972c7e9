package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/auditlog"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/schedule"
	"gorm.io/gorm"
)

// MinShiftDuration is the elapsed time below which a Clock Out needs confirmation.
const MinShiftDuration = 8 * time.Hour

// State of an employee's day before the event being decided.
type State int

const (
	StateStart  State = iota + 1 // no event today
	StateOpen                    // last event is a Clock In
	StateClosed                  // last event is a Clock Out
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeClockIn
	OutcomeClockOut
	OutcomeEarlyClockout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClockIn:
		return model.RemarksClockIn
	case OutcomeClockOut:
		return model.RemarksClockOut
	case OutcomeEarlyClockout:
		return string(apperror.CodeEarlyClockout)
	}
	return "None"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Decision is the engine's answer to a clock request. Recorded reports whether
// an AttendanceLog row was written.
type Decision struct {
	EmployeeID  string               `json:"employeeId"`
	Date        string               `json:"date"`
	At          time.Time            `json:"at"`
	State       State                `json:"-"`
	Outcome     Outcome              `json:"outcome"`
	Early       bool                 `json:"early"`
	LastEventID uint                 `json:"-"`
	LastClockIn time.Time            `json:"lastClockIn,omitempty"`
	Elapsed     time.Duration        `json:"-"`
	Recorded    bool                 `json:"recorded"`
	Log         *model.AttendanceLog `json:"log,omitempty"`
}

// MarshalJSON renders Elapsed as a duration string and in whole minutes.
func (d Decision) MarshalJSON() ([]byte, error) {
	type plain Decision
	return json.Marshal(struct {
		plain
		Elapsed        string `json:"elapsed"`
		ElapsedMinutes int64  `json:"elapsedMinutes"`
	}{
		plain:          plain(d),
		Elapsed:        d.Elapsed.Truncate(time.Second).String(),
		ElapsedMinutes: int64(d.Elapsed / time.Minute),
	})
}

// Warning reports whether the decision is an unconfirmed early clock-out.
func (d Decision) Warning() bool {
	return d.Outcome == OutcomeEarlyClockout && !d.Recorded
}

type Engine struct {
	dm      *core.DatabaseManager
	loc     *time.Location
	journal auditlog.Recorder
}

type Option func(*Engine)

// WithLocation sets the zone whose calendar date keys a day. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithJournal(j auditlog.Recorder) Option {
	return func(e *Engine) {
		if j != nil {
			e.journal = j
		}
	}
}

func NewEngine(dm *core.DatabaseManager, opts ...Option) *Engine {
	e := &Engine{dm: dm, loc: time.Local, journal: auditlog.Discard}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

// Today returns the local date key for now.
func (e *Engine) Today(now time.Time) string {
	return now.In(e.loc).Format(model.DateLayout)
}

// Decide evaluates a clock request without writing anything.
func (e *Engine) Decide(ctx context.Context, employeeID string, now time.Time) (Decision, error) {
	var d Decision
	err := e.dm.Exec(ctx, func(db *gorm.DB) error {
		emp, err := loadEmployee(db, employeeID)
		if err != nil {
			return err
		}
		d, err = e.decide(db, emp, now)
		return err
	})
	return d, err
}

// Commit writes a decision produced by Decide. The day is re-read under the
// store lock; if it moved on since the decision was made the commit fails
// with CONFLICT. An early clock-out is only written when confirmEarly is set.
func (e *Engine) Commit(ctx context.Context, pending Decision, confirmEarly bool) (Decision, error) {
	var d Decision
	err := e.dm.Exec(ctx, func(db *gorm.DB) error {
		emp, err := loadEmployee(db, pending.EmployeeID)
		if err != nil {
			return err
		}
		fresh, err := e.decide(db, emp, pending.At)
		if err != nil {
			return err
		}
		if fresh.State != pending.State || fresh.Outcome != pending.Outcome || fresh.LastEventID != pending.LastEventID {
			return apperror.Newf(apperror.CodeConflict, "attendance for %s changed since it was decided", pending.EmployeeID)
		}
		d, err = apply(db, fresh, confirmEarly)
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	e.journalDecision(ctx, d)
	return d, nil
}

// Request decides and commits in one critical section. A declined early
// clock-out returns the warning with Recorded false and leaves the day unchanged.
func (e *Engine) Request(ctx context.Context, employeeID string, now time.Time, confirmEarly bool) (Decision, error) {
	var d Decision
	err := e.dm.Exec(ctx, func(db *gorm.DB) error {
		emp, err := loadEmployee(db, employeeID)
		if err != nil {
			return err
		}
		d, err = e.decide(db, emp, now)
		if err != nil {
			return err
		}
		d, err = apply(db, d, confirmEarly)
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	e.journalDecision(ctx, d)
	return d, nil
}

// ClockInIfAbsent records a Clock In only when the employee has no event today.
func (e *Engine) ClockInIfAbsent(ctx context.Context, employeeID string, now time.Time) (Decision, error) {
	var d Decision
	err := e.dm.Exec(ctx, func(db *gorm.DB) error {
		emp, err := loadEmployee(db, employeeID)
		if err != nil {
			return err
		}
		d, err = e.decide(db, emp, now)
		if err != nil {
			return err
		}
		if d.State != StateStart {
			d.Outcome = OutcomeNone
			return nil
		}
		d, err = apply(db, d, false)
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	e.journalDecision(ctx, d)
	return d, nil
}

// ClockOutIfOpen closes an open day at now regardless of elapsed time.
func (e *Engine) ClockOutIfOpen(ctx context.Context, employeeID string, now time.Time) (Decision, error) {
	var d Decision
	err := e.dm.Exec(ctx, func(db *gorm.DB) error {
		last, err := lastEvent(db, employeeID, e.Today(now))
		if err != nil {
			return err
		}
		d = Decision{EmployeeID: employeeID, Date: e.Today(now), At: now.In(e.loc), State: e.stateOf(last)}
		if d.State != StateOpen {
			return nil
		}
		d.LastEventID = last.ID
		d.LastClockIn = last.RecordedAt
		d.Elapsed = now.Sub(last.RecordedAt)
		d.Outcome = OutcomeClockOut
		d.Early = d.Elapsed < MinShiftDuration
		d, err = apply(db, d, true)
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	e.journalDecision(ctx, d)
	return d, nil
}

func (e *Engine) decide(db *gorm.DB, emp *model.Employee, now time.Time) (Decision, error) {
	local := now.In(e.loc)
	d := Decision{
		EmployeeID: emp.EmployeeID,
		Date:       local.Format(model.DateLayout),
		At:         local,
	}

	last, err := lastEvent(db, emp.EmployeeID, d.Date)
	if err != nil {
		return d, err
	}
	d.State = e.stateOf(last)

	switch d.State {
	case StateStart:
		if !schedule.Contains(emp.Shift, local) {
			return d, apperror.Newf(apperror.CodeOutOfShift,
				"%s is outside the %s shift", local.Format("3:04pm"), emp.Shift)
		}
		d.Outcome = OutcomeClockIn
	case StateOpen:
		d.LastEventID = last.ID
		d.LastClockIn = last.RecordedAt
		d.Elapsed = now.Sub(last.RecordedAt)
		if d.Elapsed < MinShiftDuration {
			d.Outcome = OutcomeEarlyClockout
			d.Early = true
		} else {
			d.Outcome = OutcomeClockOut
		}
	case StateClosed:
		// a later Clock In on the same date skips the schedule check
		d.LastEventID = last.ID
		d.Outcome = OutcomeClockIn
	}
	return d, nil
}

func (e *Engine) stateOf(last *model.AttendanceLog) State {
	switch {
	case last == nil:
		return StateStart
	case last.Remarks == model.RemarksClockIn:
		return StateOpen
	default:
		return StateClosed
	}
}

func apply(db *gorm.DB, d Decision, confirmEarly bool) (Decision, error) {
	remarks := ""
	switch d.Outcome {
	case OutcomeClockIn:
		remarks = model.RemarksClockIn
	case OutcomeClockOut:
		remarks = model.RemarksClockOut
	case OutcomeEarlyClockout:
		if !confirmEarly {
			return d, nil
		}
		d.Outcome = OutcomeClockOut
		remarks = model.RemarksClockOut
	default:
		return d, nil
	}

	row := model.AttendanceLog{
		EmployeeID: d.EmployeeID,
		Date:       d.Date,
		Time:       d.At.Format(model.TimeLayout),
		Remarks:    remarks,
		RecordedAt: d.At,
	}
	if err := db.Create(&row).Error; err != nil {
		return d, fmt.Errorf("failed to record %s: %w", remarks, err)
	}
	d.Recorded = true
	d.Log = &row
	return d, nil
}

func (e *Engine) journalDecision(ctx context.Context, d Decision) {
	if !d.Recorded {
		return
	}
	msg := fmt.Sprintf("%s %s at %s", d.EmployeeID, strings.ToLower(d.Log.Remarks), d.Log.Time)
	if d.Early {
		msg += fmt.Sprintf(" (early, %s worked)", d.Elapsed.Truncate(time.Minute))
	}
	e.journal.Record(ctx, d.EmployeeID, msg)
}

func loadEmployee(db *gorm.DB, id string) (*model.Employee, error) {
	emp, err := core.FindEmployeeByID(db, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, apperror.Newf(apperror.CodeNoSuchPrincipal, "no employee with id %s", id)
	}
	if !emp.Active() {
		return nil, apperror.Newf(apperror.CodeInactive, "employee %s is inactive", id)
	}
	return emp, nil
}

// lastEvent returns the most recent Clock In or Clock Out for the date, or nil.
func lastEvent(db *gorm.DB, employeeID, date string) (*model.AttendanceLog, error) {
	var row model.AttendanceLog
	err := db.Where("employee_id = ? AND date = ? AND remarks IN ?",
		employeeID, date, []string{model.RemarksClockIn, model.RemarksClockOut}).
		Order("id DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
