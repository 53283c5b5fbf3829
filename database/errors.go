package database

import (
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/scribe/errors"
)

// FromDatabase maps a GORM error for resource id to an AppError. It returns
// nil for a nil error.
func FromDatabase(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict(resource + " already exists").WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}
