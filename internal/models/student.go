package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StudentDetails carries the school-owned profile for a student. The identity
// itself lives in the identity provider; this row is keyed by the same ID.
type StudentDetails struct {
	StudentID   string `json:"student_id" gorm:"primaryKey;size:255"`
	CaseHistory string `json:"case_history" gorm:"type:text"`

	// ParentID links the parent account allowed to read this student's
	// attendance. Empty until management links one.
	ParentID string `json:"parent_id" gorm:"index;size:255"`

	// AssignedFacultyIDs scopes which teachers may mark attendance for this
	// student.
	AssignedFacultyIDs datatypes.JSONSlice[string] `json:"assigned_faculty_ids" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (StudentDetails) TableName() string {
	return "student_details"
}

// HasAssignedFaculty reports whether facultyID is in the assigned set.
func (d *StudentDetails) HasAssignedFaculty(facultyID string) bool {
	for _, id := range d.AssignedFacultyIDs {
		if id == facultyID {
			return true
		}
	}
	return false
}
