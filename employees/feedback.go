package employees

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/model"
	"gorm.io/gorm"
)

type FeedbackInput struct {
	Title   string `json:"title" validate:"required,max=100"`
	Message string `json:"message" validate:"required,max=2000"`
}

// SubmitFeedback stores a feedback entry from an active employee.
func (d *Directory) SubmitFeedback(ctx context.Context, employeeID string, in FeedbackInput) (*model.Feedback, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if err := validate.Struct(in); err != nil {
		return nil, apperror.Wrap(apperror.CodeValidation, "Title and message are required", err)
	}

	fb := model.Feedback{
		ID:         uuid.NewString(),
		Title:      in.Title,
		Message:    in.Message,
		EmployeeID: employeeID,
	}
	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		emp, err := core.FindEmployeeByID(db, employeeID)
		if err != nil {
			return err
		}
		if emp == nil {
			return apperror.Newf(apperror.CodeNoSuchPrincipal, "employee %s not found", employeeID)
		}
		return db.Create(&fb).Error
	})
	if err != nil {
		return nil, err
	}

	d.journal.Record(ctx, employeeID, fmt.Sprintf("%s submitted feedback %q", employeeID, fb.Title))
	return &fb, nil
}

// ListFeedback returns all feedback, newest first.
func (d *Directory) ListFeedback(ctx context.Context) ([]model.Feedback, error) {
	var out []model.Feedback
	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Order("created_at DESC").Find(&out).Error
	})
	return out, err
}
