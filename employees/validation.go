package employees

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/schedule"
	"github.com/maeven-tapa/eals/utils"
)

// MinimumAge at enrolment, in years.
const MinimumAge = 18

var (
	idPattern   = regexp.MustCompile(`^[A-Z0-9]+-\d{2}-\d{4}$`)
	namePattern = regexp.MustCompile(`^[A-Za-z]+( [A-Za-z]+)*$`)
)

// Input is the editable part of an employee record.
type Input struct {
	EmployeeID    string    `json:"employeeId" validate:"omitempty,employeeid"`
	FirstName     string    `json:"firstName" validate:"required,max=50,personname"`
	LastName      string    `json:"lastName" validate:"required,max=50,personname"`
	MiddleInitial string    `json:"middleInitial" validate:"omitempty,len=1,alpha"`
	DateOfBirth   time.Time `json:"dateOfBirth" validate:"required"`
	Gender        string    `json:"gender" validate:"required,oneof=Male Female"`
	Department    string    `json:"department" validate:"required,max=100"`
	Position      string    `json:"position" validate:"required,max=100"`
	Shift         string    `json:"shift" validate:"required,shift"`
	Email         string    `json:"email" validate:"required,email"`
	IsHR          bool      `json:"isHr"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("employeeid", func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("shift", func(fl validator.FieldLevel) bool {
		return schedule.IsValidTag(fl.Field().String())
	})
	return v
}

var validate = newValidator()

// normalize trims the input and applies the HR rule.
func (in *Input) normalize() {
	in.EmployeeID = strings.ToUpper(strings.TrimSpace(in.EmployeeID))
	in.FirstName = strings.Join(strings.Fields(in.FirstName), " ")
	in.LastName = strings.Join(strings.Fields(in.LastName), " ")
	in.MiddleInitial = strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(in.MiddleInitial), "."))
	in.Gender = strings.TrimSpace(in.Gender)
	in.Department = strings.TrimSpace(in.Department)
	in.Position = strings.TrimSpace(in.Position)
	in.Shift = strings.TrimSpace(in.Shift)
	in.Email = strings.TrimSpace(in.Email)
	if !in.DateOfBirth.IsZero() {
		in.DateOfBirth = utils.DateOnly(in.DateOfBirth)
	}

	if in.IsHR {
		in.Department = model.HRDepartment
		in.Position = model.HRPosition
	}
}

// check validates the normalized input. The age rule applies at enrolment
// only.
func (in *Input) check(now time.Time, enrolling bool) error {
	var msgs []string
	var errs []error

	if err := validate.Struct(in); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		for _, fe := range ve {
			msgs = append(msgs, describe(fe))
		}
		errs = append(errs, err)
	}

	if enrolling && !in.DateOfBirth.IsZero() && utils.Age(in.DateOfBirth, now) < MinimumAge {
		msgs = append(msgs, fmt.Sprintf("Employee must be at least %d years old", MinimumAge))
	}

	if len(msgs) == 0 {
		return nil
	}
	return apperror.Wrap(apperror.CodeValidation, strings.Join(msgs, ", "), errors.Join(errs...))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "email":
		return fmt.Sprintf("Field '%s' must be a valid email", fe.Field())
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("Field '%s' must have length %s", fe.Field(), fe.Param())
	case "alpha", "personname":
		return fmt.Sprintf("Field '%s' must contain letters only", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of: %s", fe.Field(), fe.Param())
	case "employeeid":
		return fmt.Sprintf("Field '%s' must look like PREFIX-YY-NNNN", fe.Field())
	case "shift":
		return fmt.Sprintf("Field '%s' must be one of: %s", fe.Field(), strings.Join(schedule.Tags, ", "))
	}
	return fmt.Sprintf("Field '%s' failed validation for '%s'", fe.Field(), fe.Tag())
}
