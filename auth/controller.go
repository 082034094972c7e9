package auth

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/attendance"
	"github.com/maeven-tapa/eals/auditlog"
	"github.com/maeven-tapa/eals/credentials"
	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/security"
)

// MaxAdminFailures consecutive admin mismatches trigger the bootstrap recovery offer.
const MaxAdminFailures = 3

// ChangeTicketTTL bounds how long a forced password change stays open after
// the login that requested it.
const ChangeTicketTTL = 10 * time.Minute

const changeTicketBytes = 32

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleEmployee Role = "employee"
)

// Route tells the UI which screen follows a login step.
type Route string

const (
	RouteNone            Route = ""
	RouteAdminSession    Route = "admin_session"
	RouteHRSession       Route = "hr_session"
	RouteBioConfirmation Route = "bio_confirmation"
	RouteChangePassword  Route = "change_password"
)

type LoginResult struct {
	PrincipalID   string               `json:"principalId"`
	Role          Role                 `json:"role,omitempty"`
	Route         Route                `json:"route"`
	Attendance    *attendance.Decision `json:"attendance,omitempty"`
	Notice        string               `json:"notice,omitempty"`
	Failures      int                  `json:"failures,omitempty"`
	OfferRecovery bool                 `json:"offerRecovery,omitempty"`
	Token         string               `json:"token,omitempty"`
	// ChangeTicket must accompany the forced password change. It is only set
	// when Route is RouteChangePassword.
	ChangeTicket string `json:"changeTicket,omitempty"`
}

type changeTicket struct {
	kind    credentials.Kind
	secret  string
	expires time.Time
}

// Controller drives login, forced password changes, admin recovery and the
// attendance hand-off. One Controller serves the whole process.
type Controller struct {
	creds   *credentials.Store
	engine  *attendance.Engine
	journal auditlog.Recorder
	tokens  *security.TokenIssuer
	now     func() time.Time

	mu            sync.Mutex
	adminFailures int
	mustChange    map[string]changeTicket
	pending       map[string]attendance.Decision
}

type Option func(*Controller)

func WithJournal(j auditlog.Recorder) Option {
	return func(c *Controller) {
		if j != nil {
			c.journal = j
		}
	}
}

// WithTokens makes routed logins carry a signed session token.
func WithTokens(t *security.TokenIssuer) Option {
	return func(c *Controller) { c.tokens = t }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func NewController(creds *credentials.Store, engine *attendance.Engine, opts ...Option) *Controller {
	c := &Controller{
		creds:      creds,
		engine:     engine,
		journal:    auditlog.Discard,
		now:        time.Now,
		mustChange: map[string]changeTicket{},
		pending:    map[string]attendance.Decision{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AdminFailures is the current count of consecutive admin mismatches.
func (c *Controller) AdminFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adminFailures
}

// Authenticate resolves id as an admin, then as an employee.
func (c *Controller) Authenticate(ctx context.Context, id, password string) (LoginResult, error) {
	id = strings.TrimSpace(id)

	p, err := c.creds.Verify(ctx, id, password)
	if err != nil {
		if apperror.GetCode(err) != apperror.CodeMismatch {
			return LoginResult{PrincipalID: id}, err
		}
		if p.Kind == credentials.KindAdmin {
			n := c.recordAdminFailure()
			c.journal.Record(ctx, id, fmt.Sprintf("failed admin login for %s (%d)", id, n))
			return LoginResult{
				PrincipalID:   id,
				Role:          RoleAdmin,
				Failures:      n,
				OfferRecovery: n >= MaxAdminFailures,
			}, err
		}
		c.journal.Record(ctx, id, fmt.Sprintf("failed login for %s", id))
		return LoginResult{PrincipalID: id}, err
	}

	switch p.Kind {
	case credentials.KindAdmin:
		c.resetAdminFailures()
		if !p.PasswordChanged() {
			ticket, err := c.requireChange(id, p.Kind)
			if err != nil {
				return LoginResult{PrincipalID: id}, err
			}
			c.journal.Record(ctx, id, fmt.Sprintf("%s must change the bootstrap password", id))
			return LoginResult{PrincipalID: id, Role: RoleAdmin, Route: RouteChangePassword, ChangeTicket: ticket}, nil
		}
		return c.routeAdmin(ctx, id)

	case credentials.KindEmployee:
		if !p.Employee.Active() {
			return LoginResult{PrincipalID: id}, apperror.Newf(apperror.CodeInactive, "employee %s is inactive", id)
		}
		if !p.PasswordChanged() {
			ticket, err := c.requireChange(id, p.Kind)
			if err != nil {
				return LoginResult{PrincipalID: id}, err
			}
			c.journal.Record(ctx, id, fmt.Sprintf("%s must change the initial password", id))
			return LoginResult{PrincipalID: id, Role: roleOf(p.Employee), Route: RouteChangePassword, ChangeTicket: ticket}, nil
		}
		return c.routeEmployee(ctx, p.Employee)
	}

	return LoginResult{}, fmt.Errorf("unexpected principal kind %v", p.Kind)
}

// ChangePassword completes a forced password change requested by
// Authenticate and continues routing as if the login had just succeeded.
// ticket is the ChangeTicket handed out by that login; it is consumed on
// success.
func (c *Controller) ChangePassword(ctx context.Context, id, ticket, newPassword, confirm string) (LoginResult, error) {
	pending, err := c.takeTicket(id, ticket)
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeMismatch {
			c.journal.Record(ctx, id, fmt.Sprintf("rejected password change for %s: bad ticket", id))
		}
		return LoginResult{PrincipalID: id}, err
	}
	kind := pending.kind

	if err := credentials.ValidateNewPassword(kind, newPassword, confirm); err != nil {
		c.restoreTicket(id, pending)
		return LoginResult{PrincipalID: id, Route: RouteChangePassword}, err
	}
	if err := c.creds.Rotate(ctx, id, newPassword, true); err != nil {
		c.restoreTicket(id, pending)
		return LoginResult{PrincipalID: id, Route: RouteChangePassword}, err
	}
	c.journal.Record(ctx, id, fmt.Sprintf("%s changed password", id))

	if kind == credentials.KindAdmin {
		return c.routeAdmin(ctx, id)
	}

	p, err := c.creds.Lookup(ctx, id)
	if err != nil {
		return LoginResult{PrincipalID: id}, err
	}
	return c.routeEmployee(ctx, p.Employee)
}

// RecoverAdmin replaces a forgotten admin password after the bootstrap
// password is presented again.
func (c *Controller) RecoverAdmin(ctx context.Context, adminID, bootstrapPassword, newPassword, confirm string) error {
	if err := c.creds.VerifyBootstrap(ctx, adminID, bootstrapPassword); err != nil {
		c.journal.Record(ctx, adminID, fmt.Sprintf("failed bootstrap recovery for %s", adminID))
		return err
	}
	if err := credentials.ValidateNewPassword(credentials.KindAdmin, newPassword, confirm); err != nil {
		return err
	}
	if err := c.creds.Rotate(ctx, adminID, newPassword, true); err != nil {
		return err
	}

	c.resetAdminFailures()
	c.mu.Lock()
	delete(c.mustChange, adminID)
	c.mu.Unlock()
	c.journal.Record(ctx, adminID, fmt.Sprintf("%s recovered with the bootstrap password", adminID))
	return nil
}

// ConfirmAttendance commits the decision made at login once the employee has
// passed the confirmation screens. Declining an early clock-out is done by
// passing confirmEarly=false; nothing is written in that case.
func (c *Controller) ConfirmAttendance(ctx context.Context, employeeID string, confirmEarly bool) (attendance.Decision, error) {
	c.mu.Lock()
	pending, ok := c.pending[employeeID]
	delete(c.pending, employeeID)
	c.mu.Unlock()
	if !ok {
		return attendance.Decision{}, apperror.Newf(apperror.CodeNotFound, "no pending attendance for %s", employeeID)
	}

	return c.engine.Commit(ctx, pending, confirmEarly)
}

// CancelAttendance drops the pending decision without writing anything.
func (c *Controller) CancelAttendance(employeeID string) {
	c.mu.Lock()
	delete(c.pending, employeeID)
	c.mu.Unlock()
}

// Pending returns the decision awaiting confirmation for an employee.
func (c *Controller) Pending(employeeID string) (attendance.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.pending[employeeID]
	return d, ok
}

// Logout ends a session. Employees with an open day get a Clock Out at the
// current time.
func (c *Controller) Logout(ctx context.Context, principalID string) (*attendance.Decision, error) {
	c.mu.Lock()
	delete(c.pending, principalID)
	delete(c.mustChange, principalID)
	c.mu.Unlock()

	p, err := c.creds.Lookup(ctx, principalID)
	if err != nil {
		return nil, err
	}

	var out *attendance.Decision
	if p.Kind == credentials.KindEmployee {
		d, err := c.engine.ClockOutIfOpen(ctx, principalID, c.now())
		if err != nil {
			return nil, err
		}
		out = &d
	}

	c.journal.Record(ctx, principalID, fmt.Sprintf("%s logged out", principalID))
	return out, nil
}

func (c *Controller) routeAdmin(ctx context.Context, id string) (LoginResult, error) {
	res := LoginResult{PrincipalID: id, Role: RoleAdmin, Route: RouteAdminSession}
	if err := c.attachToken(&res); err != nil {
		return LoginResult{PrincipalID: id}, err
	}
	c.journal.Record(ctx, id, fmt.Sprintf("admin %s logged in", id))
	return res, nil
}

func (c *Controller) routeEmployee(ctx context.Context, emp *model.Employee) (LoginResult, error) {
	id := emp.EmployeeID
	now := c.now()

	if emp.IsHR {
		res := LoginResult{PrincipalID: id, Role: RoleHR, Route: RouteHRSession}
		d, err := c.engine.ClockInIfAbsent(ctx, id, now)
		switch {
		case apperror.GetCode(err) == apperror.CodeOutOfShift:
			res.Notice = err.Error()
		case err != nil:
			return LoginResult{PrincipalID: id}, err
		default:
			res.Attendance = &d
		}
		if err := c.attachToken(&res); err != nil {
			return LoginResult{PrincipalID: id}, err
		}
		c.journal.Record(ctx, id, fmt.Sprintf("HR %s logged in", id))
		return res, nil
	}

	d, err := c.engine.Decide(ctx, id, now)
	if err != nil {
		c.journal.Record(ctx, id, fmt.Sprintf("%s refused: %v", id, err))
		return LoginResult{PrincipalID: id, Role: RoleEmployee}, err
	}

	c.mu.Lock()
	c.pending[id] = d
	c.mu.Unlock()

	res := LoginResult{PrincipalID: id, Role: RoleEmployee, Route: RouteBioConfirmation, Attendance: &d}
	if err := c.attachToken(&res); err != nil {
		return LoginResult{PrincipalID: id}, err
	}
	c.journal.Record(ctx, id, fmt.Sprintf("%s logged in, pending %s", id, d.Outcome))
	return res, nil
}

func (c *Controller) attachToken(res *LoginResult) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Create(security.Identity{PrincipalID: res.PrincipalID, Role: string(res.Role)}, c.now())
	if err != nil {
		log.Printf("[ERROR] failed to sign session token for %s: %v", res.PrincipalID, err)
		return fmt.Errorf("failed to sign session token: %w", err)
	}
	res.Token = token
	return nil
}

func (c *Controller) recordAdminFailure() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adminFailures++
	return c.adminFailures
}

func (c *Controller) resetAdminFailures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adminFailures = 0
}

// requireChange opens a forced change for id and returns its ticket. A newer
// login replaces any ticket issued before it.
func (c *Controller) requireChange(id string, kind credentials.Kind) (string, error) {
	secret, err := security.RandomSecret(changeTicketBytes)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustChange[id] = changeTicket{kind: kind, secret: secret, expires: c.now().Add(ChangeTicketTTL)}
	return secret, nil
}

// takeTicket removes and returns the open change for id when ticket matches it.
func (c *Controller) takeTicket(id, ticket string) (changeTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending, ok := c.mustChange[id]
	if ok && !c.now().Before(pending.expires) {
		delete(c.mustChange, id)
		ok = false
	}
	if !ok {
		return changeTicket{}, apperror.Newf(apperror.CodeValidation, "no password change pending for %s", id)
	}
	if !security.EqualConstantTime(pending.secret, ticket) {
		return changeTicket{}, apperror.Newf(apperror.CodeMismatch, "password change ticket is not valid for %s", id)
	}
	delete(c.mustChange, id)
	return pending, nil
}

// restoreTicket reopens a change whose attempt failed, unless a newer login
// has issued another ticket meanwhile.
func (c *Controller) restoreTicket(id string, t changeTicket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mustChange[id]; !ok {
		c.mustChange[id] = t
	}
}

func roleOf(emp *model.Employee) Role {
	if emp.IsHR {
		return RoleHR
	}
	return RoleEmployee
}
