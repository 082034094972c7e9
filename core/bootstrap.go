package core

import (
	"context"
	"fmt"

	"github.com/maeven-tapa/eals/model"
	"github.com/maeven-tapa/eals/security"
	"gorm.io/gorm"
)

const bootstrapPasswordLength = 8

// Bootstrap carries the one-time admin credentials. Password is only set when
// Created is true.
type Bootstrap struct {
	Created  bool
	AdminID  string
	Password string
}

// EnsureBootstrapAdmin creates the bootstrap admin when the store has no
// admins. It is a no-op otherwise.
func EnsureBootstrapAdmin(ctx context.Context, dm *DatabaseManager) (Bootstrap, error) {
	var out Bootstrap
	err := dm.Exec(ctx, func(db *gorm.DB) error {
		n, err := CountAdmins(db)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		password, err := security.RandomAlphanumeric(bootstrapPasswordLength)
		if err != nil {
			return fmt.Errorf("failed to generate bootstrap password: %w", err)
		}
		hash, err := security.HashPassword(password)
		if err != nil {
			return err
		}

		admin := model.Admin{
			AdminID:         model.BootstrapAdminID,
			PasswordHash:    hash,
			BootstrapHash:   hash,
			PasswordChanged: false,
		}
		if err := db.Create(&admin).Error; err != nil {
			return err
		}

		out = Bootstrap{Created: true, AdminID: admin.AdminID, Password: password}
		return nil
	})
	if err != nil {
		return Bootstrap{}, err
	}
	return out, nil
}
