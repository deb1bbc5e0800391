package repository

import (
	"errors"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
)

// translate maps storage errors onto the entity sentinels usecases expect.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return entity.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return entity.ErrConflict
	default:
		return err
	}
}
