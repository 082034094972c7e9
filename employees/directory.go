package employees

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/auditlog"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/infrastructure/filesystem"
	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/security"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Directory owns employee records, their pictures and feedback.
type Directory struct {
	dm          *core.DatabaseManager
	picturesDir string
	journal     auditlog.Recorder
	now         func() time.Time
	hash        func(plain string) (string, error)
}

type Option func(*Directory)

func WithJournal(j auditlog.Recorder) Option {
	return func(d *Directory) {
		if j != nil {
			d.journal = j
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// WithPasswordHasher replaces the hasher used for initial passwords.
func WithPasswordHasher(hash func(plain string) (string, error)) Option {
	return func(d *Directory) {
		if hash != nil {
			d.hash = hash
		}
	}
}

func NewDirectory(dm *core.DatabaseManager, picturesDir string, opts ...Option) *Directory {
	d := &Directory{
		dm:          dm,
		picturesDir: picturesDir,
		journal:     auditlog.Discard,
		now:         time.Now,
		hash:        security.HashPassword,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// InitialPassword is the password a new employee signs in with.
func InitialPassword(lastName string) string {
	return strings.ToUpper(lastName)
}

// Enroll creates an employee. When EmployeeID is empty the next id for
// prefix and the current year is assigned.
func (d *Directory) Enroll(ctx context.Context, in Input, prefix, by string) (*model.Employee, error) {
	in.normalize()
	if err := in.check(d.now(), true); err != nil {
		return nil, err
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if in.EmployeeID == "" && prefix == "" {
		return nil, apperror.New(apperror.CodeValidation, "Field 'employeeId' is required")
	}

	hash, err := d.hash(InitialPassword(in.LastName))
	if err != nil {
		return nil, err
	}

	emp := model.Employee{
		EmployeeID:   in.EmployeeID,
		Status:       model.StatusActive,
		PasswordHash: hash,
		CreatedBy:    by,
		ModifiedBy:   by,
	}
	apply(&emp, &in)

	err = d.dm.Exec(ctx, func(db *gorm.DB) error {
		if emp.EmployeeID == "" {
			id, err := nextID(db, prefix, d.now().Year())
			if err != nil {
				return err
			}
			emp.EmployeeID = id
		}

		existing, err := core.FindEmployeeByID(db, emp.EmployeeID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Newf(apperror.CodeValidation, "Employee ID %s already exists", emp.EmployeeID)
		}
		if err := checkNameFree(db, emp.FirstName, emp.LastName, ""); err != nil {
			return err
		}
		return db.Create(&emp).Error
	})
	if err != nil {
		return nil, err
	}

	d.journal.Record(ctx, by, fmt.Sprintf("%s enrolled employee %s (%s)", by, emp.EmployeeID, emp.FullName()))
	return &emp, nil
}

// Update replaces the editable fields of an employee. The id is fixed.
func (d *Directory) Update(ctx context.Context, id string, in Input, by string) (*model.Employee, error) {
	in.EmployeeID = ""
	in.normalize()
	if err := in.check(d.now(), false); err != nil {
		return nil, err
	}

	var emp *model.Employee
	var oldPicture string
	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		var err error
		emp, err = core.FindEmployeeByID(db, id)
		if err != nil {
			return err
		}
		if emp == nil {
			return apperror.Newf(apperror.CodeNotFound, "employee %s not found", id)
		}
		if err := checkNameFree(db, in.FirstName, in.LastName, id); err != nil {
			return err
		}

		oldPicture = emp.ProfilePicture
		apply(emp, &in)
		if oldPicture != "" {
			emp.ProfilePicture = d.picturePath(emp)
		}
		emp.ModifiedBy = by
		return db.Save(emp).Error
	})
	if err != nil {
		return nil, err
	}

	if oldPicture != "" && oldPicture != emp.ProfilePicture {
		if err := os.Rename(oldPicture, emp.ProfilePicture); err != nil && !os.IsNotExist(err) {
			return emp, fmt.Errorf("failed to rename profile picture: %w", err)
		}
	}

	d.journal.Record(ctx, by, fmt.Sprintf("%s updated employee %s", by, id))
	return emp, nil
}

func (d *Directory) Get(ctx context.Context, id string) (*model.Employee, error) {
	var emp *model.Employee
	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		var err error
		emp, err = core.FindEmployeeByID(db, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, apperror.Newf(apperror.CodeNotFound, "employee %s not found", id)
	}
	return emp, nil
}

// Filter narrows the HR directory listing.
type Filter struct {
	Query      string `form:"q"`
	Department string `form:"department"`
	Status     string `form:"status"`
	HROnly     bool   `form:"hr"`
}

func (d *Directory) List(ctx context.Context, f Filter) ([]model.Employee, error) {
	var out []model.Employee
	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		q := db.Model(&model.Employee{})
		if f.Query != "" {
			like := "%" + strings.ToLower(strings.TrimSpace(f.Query)) + "%"
			q = q.Where("LOWER(employee_id) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
		}
		if f.Department != "" {
			q = q.Where("department = ?", f.Department)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.HROnly {
			q = q.Where("is_hr = ?", true)
		}
		return q.Order("last_name, first_name").Find(&out).Error
	})
	return out, err
}

// SetStatus activates or deactivates an employee.
func (d *Directory) SetStatus(ctx context.Context, id, status, by string) error {
	if status != model.StatusActive && status != model.StatusInactive {
		return apperror.Newf(apperror.CodeValidation, "status must be %s or %s", model.StatusActive, model.StatusInactive)
	}

	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		res := db.Model(&model.Employee{}).
			Where("employee_id = ?", id).
			Updates(map[string]any{"status": status, "modified_by": by})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.Newf(apperror.CodeNotFound, "employee %s not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.journal.Record(ctx, by, fmt.Sprintf("%s set employee %s to %s", by, id, status))
	return nil
}

// Delete removes the employee with their attendance, feedback and picture.
func (d *Directory) Delete(ctx context.Context, id, by string) error {
	var picture string
	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		emp, err := core.FindEmployeeByID(db, id)
		if err != nil {
			return err
		}
		if emp == nil {
			return apperror.Newf(apperror.CodeNotFound, "employee %s not found", id)
		}
		picture = emp.ProfilePicture

		if err := db.Where("employee_id = ?", id).Delete(&model.AttendanceLog{}).Error; err != nil {
			return err
		}
		if err := db.Where("employee_id = ?", id).Delete(&model.Feedback{}).Error; err != nil {
			return err
		}
		return db.Delete(emp).Error
	})
	if err != nil {
		return err
	}

	if picture != "" {
		if err := filesystem.RemoveIfExists(picture); err != nil {
			return fmt.Errorf("employee deleted but picture remains: %w", err)
		}
	}

	d.journal.Record(ctx, by, fmt.Sprintf("%s deleted employee %s", by, id))
	return nil
}

// NextID returns the next free id of the form PREFIX-YY-NNNN.
func (d *Directory) NextID(ctx context.Context, prefix string, year int) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	var id string
	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		var err error
		id, err = nextID(db, prefix, year)
		return err
	})
	return id, err
}

func nextID(db *gorm.DB, prefix string, year int) (string, error) {
	stem := fmt.Sprintf("%s-%02d-", prefix, year%100)
	if !idPattern.MatchString(stem + "0001") {
		return "", apperror.Newf(apperror.CodeValidation, "invalid employee id prefix %q", prefix)
	}

	var ids []string
	if err := db.Model(&model.Employee{}).
		Where("employee_id LIKE ?", stem+"%").
		Pluck("employee_id", &ids).Error; err != nil {
		return "", err
	}

	highest := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, stem))
		if err == nil && n > highest {
			highest = n
		}
	}
	if highest >= 9999 {
		return "", apperror.Newf(apperror.CodeValidation, "no ids left for %s", stem)
	}
	return fmt.Sprintf("%s%04d", stem, highest+1), nil
}

func checkNameFree(db *gorm.DB, first, last, exceptID string) error {
	q := db.Model(&model.Employee{}).Where("first_name = ? AND last_name = ?", first, last)
	if exceptID != "" {
		q = q.Where("employee_id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.Newf(apperror.CodeValidation, "An employee named %s %s already exists", first, last)
	}
	return nil
}

func apply(emp *model.Employee, in *Input) {
	emp.FirstName = in.FirstName
	emp.LastName = in.LastName
	emp.MiddleInitial = in.MiddleInitial
	emp.DateOfBirth = datatypes.Date(in.DateOfBirth)
	emp.Gender = in.Gender
	emp.Department = in.Department
	emp.Position = in.Position
	emp.Shift = in.Shift
	emp.Email = in.Email
	emp.IsHR = in.IsHR
}

func (d *Directory) picturePath(emp *model.Employee) string {
	name := strings.ReplaceAll(emp.FirstName+"_"+emp.LastName, " ", "_")
	return filepath.Join(d.picturesDir, name+".jpg")
}
