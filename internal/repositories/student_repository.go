package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
)

// StudentDetailsRepository stores the school-owned side of a student profile.
// The identity itself is owned by the identity provider; a details row
// without a matching identity (or vice versa) is the orphaned partial state
// the onboarding saga can leave behind.
type StudentDetailsRepository interface {
	Create(ctx context.Context, tx *gorm.DB, details *models.StudentDetails) error
	GetByID(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudentDetails, error)
	ExistsByID(ctx context.Context, tx *gorm.DB, studentID string) (bool, error)

	// Scoped updates; whole-row replace is not offered.
	UpdateCaseHistory(ctx context.Context, tx *gorm.DB, studentID, caseHistory string) error
	SetParent(ctx context.Context, tx *gorm.DB, studentID, parentID string) error
	SetAssignedFaculty(ctx context.Context, tx *gorm.DB, studentID string, facultyIDs []string) error

	// List operations
	List(ctx context.Context, tx *gorm.DB, filters StudentDetailsFilters) ([]*models.StudentDetails, int64, error)
	GetByParent(ctx context.Context, tx *gorm.DB, parentID string) ([]*models.StudentDetails, error)
}
