package reset

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/auditlog"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/credentials"
	"github.com/maeven-tapa/eals/infrastructure/communication"
	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/security"
	"gorm.io/gorm"
)

const (
	Subject    = "EALS Password Reset Verification Code"
	CodeDigits = 4
)

const bodyTemplate = `Hello %s,

Your EALS password reset verification code is: %s

Enter this code in the password reset window to continue. The code stays
valid until the window is closed. If you did not ask to reset your password
you can ignore this message.
`

type Step int

const (
	StepIdentity Step = iota + 1
	StepCode
	StepPassword
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "identity"
	case StepCode:
		return "code"
	case StepPassword:
		return "password"
	case StepDone:
		return "done"
	}
	return "discarded"
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Service struct {
	dm      *core.DatabaseManager
	creds   *credentials.Store
	mailer  communication.Mailer
	prober  Prober
	journal auditlog.Recorder
}

func NewService(dm *core.DatabaseManager, creds *credentials.Store, mailer communication.Mailer, prober Prober, journal auditlog.Recorder) *Service {
	if journal == nil {
		journal = auditlog.Discard
	}
	return &Service{dm: dm, creds: creds, mailer: mailer, prober: prober, journal: journal}
}

// Begin checks connectivity and opens a flow at the identity step.
func (s *Service) Begin(ctx context.Context) (*Flow, error) {
	if s.prober != nil {
		if err := s.prober.Probe(ctx); err != nil {
			if apperror.GetCode(err) != apperror.CodeTransportUnavailable {
				err = apperror.Wrap(apperror.CodeTransportUnavailable, "no internet connection", err)
			}
			return nil, err
		}
	}
	return &Flow{svc: s, step: StepIdentity}, nil
}

// Flow is one forgot-password dialog. The verification code lives only here.
type Flow struct {
	svc *Service

	mu         sync.Mutex
	step       Step
	employeeID string
	code       string
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *Flow) EmployeeID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.employeeID
}

// VerifyIdentity matches id, date of birth and email against the employee
// row and mails a fresh code when all three agree. Going back to this step
// from code entry replaces the code.
func (f *Flow) VerifyIdentity(ctx context.Context, employeeID string, dob time.Time, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepIdentity && f.step != StepCode {
		return stepError(f.step, StepIdentity)
	}

	employeeID = strings.TrimSpace(employeeID)
	email = strings.TrimSpace(email)

	var emp *model.Employee
	err := f.svc.dm.Exec(ctx, func(db *gorm.DB) error {
		var err error
		emp, err = core.FindEmployeeByID(db, employeeID)
		return err
	})
	if err != nil {
		return err
	}

	if emp == nil ||
		emp.Email != email ||
		time.Time(emp.DateOfBirth).Format(model.DateLayout) != dob.Format(model.DateLayout) {
		f.svc.journal.Record(ctx, employeeID, fmt.Sprintf("password reset identity mismatch for %s", employeeID))
		return apperror.New(apperror.CodeIdentityMismatch, "employee id, date of birth and email do not match our records")
	}

	code, err := security.RandomDigits(CodeDigits)
	if err != nil {
		return err
	}

	msg := communication.Message{
		To:      []string{emp.Email},
		Subject: Subject,
		Text:    fmt.Sprintf(bodyTemplate, emp.FirstName, code),
	}
	if err := f.svc.mailer.Send(ctx, msg); err != nil {
		return apperror.Wrap(apperror.CodeTransportUnavailable, "failed to send verification code", err)
	}

	f.employeeID = emp.EmployeeID
	f.code = code
	f.step = StepCode
	f.svc.journal.Record(ctx, emp.EmployeeID, fmt.Sprintf("password reset code sent to %s", emp.EmployeeID))
	return nil
}

// VerifyCode consumes the code on a match. A wrong code leaves it active.
func (f *Flow) VerifyCode(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepCode {
		return stepError(f.step, StepCode)
	}
	if !security.EqualConstantTime(strings.TrimSpace(code), f.code) {
		return apperror.New(apperror.CodeBadCode, "verification code is incorrect")
	}

	f.code = ""
	f.step = StepPassword
	return nil
}

// SetPassword stores the new password and finishes the flow.
func (f *Flow) SetPassword(ctx context.Context, newPassword, confirm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepPassword {
		return stepError(f.step, StepPassword)
	}
	if err := credentials.ValidateNewPassword(credentials.KindEmployee, newPassword, confirm); err != nil {
		return err
	}
	if err := f.svc.creds.Rotate(ctx, f.employeeID, newPassword, true); err != nil {
		return err
	}

	f.step = StepDone
	f.svc.journal.Record(ctx, f.employeeID, fmt.Sprintf("%s reset password by email code", f.employeeID))
	return nil
}

// Discard forgets the code; the flow cannot be used afterwards.
func (f *Flow) Discard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code = ""
	f.step = 0
}

func stepError(have, want Step) error {
	return apperror.Newf(apperror.CodeValidation, "reset flow is at the %s step, not %s", have, want)
}
