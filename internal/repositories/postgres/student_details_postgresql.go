package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

type StudentDetailsPostgreSQL struct {
	db *gorm.DB
}

func NewStudentDetailsPostgreSQL(db *gorm.DB) repositories.StudentDetailsRepository {
	return &StudentDetailsPostgreSQL{db: db}
}

func (s *StudentDetailsPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *StudentDetailsPostgreSQL) Create(ctx context.Context, tx *gorm.DB, details *models.StudentDetails) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(details).Error; err != nil {
		return fmt.Errorf("failed to create student details: %w", err)
	}
	return nil
}

func (s *StudentDetailsPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, studentID string) (*models.StudentDetails, error) {
	db := s.getDB(tx)

	var details models.StudentDetails
	if err := db.WithContext(ctx).First(&details, "student_id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student details: %w", err)
	}
	return &details, nil
}

func (s *StudentDetailsPostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, studentID string) (bool, error) {
	db := s.getDB(tx)

	var count int64
	err := db.WithContext(ctx).
		Model(&models.StudentDetails{}).
		Where("student_id = ?", studentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check student details existence: %w", err)
	}
	return count > 0, nil
}

func (s *StudentDetailsPostgreSQL) UpdateCaseHistory(ctx context.Context, tx *gorm.DB, studentID, caseHistory string) error {
	return s.updateColumn(ctx, tx, studentID, "case_history", caseHistory)
}

func (s *StudentDetailsPostgreSQL) SetParent(ctx context.Context, tx *gorm.DB, studentID, parentID string) error {
	return s.updateColumn(ctx, tx, studentID, "parent_id", parentID)
}

func (s *StudentDetailsPostgreSQL) SetAssignedFaculty(ctx context.Context, tx *gorm.DB, studentID string, facultyIDs []string) error {
	return s.updateColumn(ctx, tx, studentID, "assigned_faculty_ids", datatypes.NewJSONSlice(facultyIDs))
}

func (s *StudentDetailsPostgreSQL) updateColumn(ctx context.Context, tx *gorm.DB, studentID, column string, value interface{}) error {
	db := s.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.StudentDetails{}).
		Where("student_id = ?", studentID).
		Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("failed to update student %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (s *StudentDetailsPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.StudentDetailsFilters) ([]*models.StudentDetails, int64, error) {
	db := s.getDB(tx)

	var details []*models.StudentDetails
	var total int64

	query := db.WithContext(ctx).Model(&models.StudentDetails{})
	if filters.ParentID != nil {
		query = query.Where("parent_id = ?", *filters.ParentID)
	}
	if filters.FacultyID != nil {
		query = query.Where("assigned_faculty_ids @> ?", fmt.Sprintf("%q", *filters.FacultyID))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("student_id ASC").Find(&details).Error; err != nil {
		return nil, 0, err
	}

	return details, total, nil
}

func (s *StudentDetailsPostgreSQL) GetByParent(ctx context.Context, tx *gorm.DB, parentID string) ([]*models.StudentDetails, error) {
	db := s.getDB(tx)

	var details []*models.StudentDetails
	if err := db.WithContext(ctx).Where("parent_id = ?", parentID).Find(&details).Error; err != nil {
		return nil, fmt.Errorf("failed to get students by parent: %w", err)
	}
	return details, nil
}
