package models

import (
	"fmt"
	"time"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLeave   AttendanceStatus = "leave"
)

type AttendanceOrigin string

const (
	OriginEnter  AttendanceOrigin = "enter"
	OriginExit   AttendanceOrigin = "exit"
	OriginManual AttendanceOrigin = "manual"
)

// MarkedBySystem is recorded as the attribution of geofence-produced fields.
const MarkedBySystem = "system"

// AttendanceRecord is the per-student-per-day ledger entry. The primary key is
// derived from (student, date), so every writer for the same student-day
// targets the same row. Rows are never deleted.
//
// Two independent writers touch this row: the manual marking endpoint and the
// background geofence consumer. Both must go through
// AttendanceRepository.Upsert with an explicit owned-column set; a blind
// Save/replace here would let one path erase the other's fields.
type AttendanceRecord struct {
	ID          string           `json:"id" gorm:"primaryKey;size:300"`
	StudentID   string           `json:"student_id" gorm:"not null;index;size:255"`
	StudentName string           `json:"student_name" gorm:"not null;size:200"`
	Date        string           `json:"date" gorm:"not null;index;size:10"` // YYYY-MM-DD
	Status      AttendanceStatus `json:"status" gorm:"not null;size:20"`

	// CheckInAt is the zero time for a manual absent/leave mark; that sentinel
	// means "no check-in happened", not "checked in at epoch".
	CheckInAt  time.Time  `json:"check_in_at"`
	CheckOutAt *time.Time `json:"check_out_at"`

	// MarkedBy is MarkedBySystem for geofence writes, otherwise a faculty ID.
	MarkedBy string           `json:"marked_by" gorm:"not null;size:255"`
	Origin   AttendanceOrigin `json:"origin" gorm:"size:10"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// AttendanceRecordID builds the deterministic student-day key.
func AttendanceRecordID(studentID, date string) string {
	return fmt.Sprintf("%s_%s", studentID, date)
}
