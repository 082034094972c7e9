package employees

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/infrastructure/filesystem"
	"github.com/maeven-tapa/eals/model"
	"gorm.io/gorm"
)

// MaxPictureSize is the largest accepted profile picture upload.
const MaxPictureSize = 20 << 20

// SaveProfilePicture decodes the uploaded image and stores it as JPEG under
// <given>_<family>.jpg. It returns the stored path.
func (d *Directory) SaveProfilePicture(ctx context.Context, id string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPictureSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read picture: %w", err)
	}
	if len(data) > MaxPictureSize {
		return "", apperror.New(apperror.CodeValidation, "Profile picture must be at most 20 MB")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", apperror.Wrap(apperror.CodeValidation, "Profile picture is not a supported image", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("failed to encode picture: %w", err)
	}

	if err := os.MkdirAll(d.picturesDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create picture directory: %w", err)
	}

	var path string
	err = d.dm.Exec(ctx, func(db *gorm.DB) error {
		emp, err := core.FindEmployeeByID(db, id)
		if err != nil {
			return err
		}
		if emp == nil {
			return apperror.Newf(apperror.CodeNotFound, "employee %s not found", id)
		}

		path = d.picturePath(emp)
		if err := filesystem.WriteFileAtomic(path, &buf); err != nil {
			return err
		}
		return db.Model(&model.Employee{}).
			Where("employee_id = ?", id).
			Update("profile_picture", path).Error
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
