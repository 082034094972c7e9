package core

import (
	"errors"
	"log"
	"strings"

	"github.com/maeven-tapa/eals/apperror"
	"gorm.io/gorm"
)

// MapError converts driver errors into the application taxonomy. Errors that
// already carry a code pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperror.Wrap(apperror.CodeValidation, "record already exists", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Wrap(apperror.CodeNotFound, "record not found", err)
	}

	log.Printf("[ERROR] database: %v", err)
	return apperror.Wrap(apperror.CodePersistence, "database error", err)
}
