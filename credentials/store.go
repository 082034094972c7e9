package credentials

import (
	"context"
	"fmt"
	"strings"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/security"
	"gorm.io/gorm"
)

type Kind int

const (
	KindAdmin Kind = iota + 1
	KindEmployee
)

func (k Kind) String() string {
	switch k {
	case KindAdmin:
		return "admin"
	case KindEmployee:
		return "employee"
	}
	return "unknown"
}

// Principal is a resolved login subject. Exactly one of Admin and Employee is set.
type Principal struct {
	ID       string
	Kind     Kind
	Admin    *model.Admin
	Employee *model.Employee
}

func (p Principal) passwordHash() string {
	if p.Admin != nil {
		return p.Admin.PasswordHash
	}
	return p.Employee.PasswordHash
}

func (p Principal) PasswordChanged() bool {
	if p.Admin != nil {
		return p.Admin.PasswordChanged
	}
	return p.Employee.PasswordChanged
}

// Store verifies and rotates password hashes for admins and employees.
type Store struct {
	dm *core.DatabaseManager
}

func NewStore(dm *core.DatabaseManager) *Store {
	return &Store{dm: dm}
}

// Lookup resolves id as an admin first, then as an employee.
func (s *Store) Lookup(ctx context.Context, id string) (Principal, error) {
	var p Principal
	err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		var err error
		p, err = lookup(db, id)
		return err
	})
	return p, err
}

func lookup(db *gorm.DB, id string) (Principal, error) {
	admin, err := core.FindAdminByID(db, id)
	if err != nil {
		return Principal{}, err
	}
	if admin != nil {
		return Principal{ID: id, Kind: KindAdmin, Admin: admin}, nil
	}

	emp, err := core.FindEmployeeByID(db, id)
	if err != nil {
		return Principal{}, err
	}
	if emp != nil {
		return Principal{ID: id, Kind: KindEmployee, Employee: emp}, nil
	}

	return Principal{}, apperror.Newf(apperror.CodeNoSuchPrincipal, "no account with id %s", id)
}

// Verify resolves id and checks plain against its current hash. A wrong
// password yields MISMATCH together with the resolved principal.
func (s *Store) Verify(ctx context.Context, id, plain string) (Principal, error) {
	p, err := s.Lookup(ctx, id)
	if err != nil {
		return Principal{}, err
	}
	if err := security.VerifyPassword(p.passwordHash(), plain); err != nil {
		return p, err
	}
	return p, nil
}

// VerifyBootstrap checks plain against the admin's original bootstrap hash.
func (s *Store) VerifyBootstrap(ctx context.Context, adminID, plain string) error {
	p, err := s.Lookup(ctx, adminID)
	if err != nil {
		return err
	}
	if p.Kind != KindAdmin {
		return apperror.Newf(apperror.CodeNoSuchPrincipal, "no admin with id %s", adminID)
	}
	return security.VerifyPassword(p.Admin.BootstrapHash, plain)
}

// Rotate replaces the principal's current hash and sets password_changed to
// markChanged. The bootstrap hash of an admin is never touched.
func (s *Store) Rotate(ctx context.Context, principalID, newPlain string, markChanged bool) error {
	hash, err := security.HashPassword(newPlain)
	if err != nil {
		return err
	}

	return s.dm.Exec(ctx, func(db *gorm.DB) error {
		p, err := lookup(db, principalID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"password_hash":    hash,
			"password_changed": markChanged,
		}
		switch p.Kind {
		case KindAdmin:
			return db.Model(&model.Admin{}).Where("admin_id = ?", principalID).Updates(updates).Error
		case KindEmployee:
			return db.Model(&model.Employee{}).Where("employee_id = ?", principalID).Updates(updates).Error
		}
		return fmt.Errorf("unexpected principal kind %v", p.Kind)
	})
}

const (
	MinPasswordLength      = 8
	MaxAdminPasswordLength = 16
)

// ValidateNewPassword applies the change-password rules: admins 8 to 16
// characters, employees at least 8, and the confirmation must match.
func ValidateNewPassword(kind Kind, newPlain, confirm string) error {
	var problems []string

	n := len([]rune(newPlain))
	if n < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if kind == KindAdmin && n > MaxAdminPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at most %d characters", MaxAdminPasswordLength))
	}
	if strings.TrimSpace(newPlain) == "" && n > 0 {
		problems = append(problems, "password must not be blank")
	}
	if newPlain != confirm {
		problems = append(problems, "passwords do not match")
	}

	if len(problems) > 0 {
		return apperror.New(apperror.CodeValidation, strings.Join(problems, ", "))
	}
	return nil
}
