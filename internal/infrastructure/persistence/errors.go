package persistence

import (
	"errors"

	"github.com/sac/membership/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps gorm errors to domain errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return err
}
