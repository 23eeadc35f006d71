package repository

import (
	"errors"
	"fmt"

	"sessionescrow/internal/domain"

	"gorm.io/gorm"
)

// notFound maps gorm's missing-row error onto the domain sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return err
}
