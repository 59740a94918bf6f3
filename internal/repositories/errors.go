package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by repositories when the requested row does not
// exist. An unset geofence zone is reported this way too; callers decide
// whether absence is a fault.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err is a not-found condition from any
// repository implementation.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
