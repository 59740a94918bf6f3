package models

import "time"

type IncidentSeverity string

const (
	SeverityLow    IncidentSeverity = "low"
	SeverityMedium IncidentSeverity = "medium"
	SeverityHigh   IncidentSeverity = "high"
)

type SafetyIncident struct {
	ID          string           `json:"id" gorm:"primaryKey;size:36"`
	StudentID   string           `json:"student_id" gorm:"not null;index;size:255"`
	StudentName string           `json:"student_name" gorm:"not null;size:200"`
	ReportedBy  string           `json:"reported_by" gorm:"not null;index;size:255"`
	ReportedAt  time.Time        `json:"reported_at" gorm:"not null"`
	Description string           `json:"description" gorm:"type:text;not null"`
	Severity    IncidentSeverity `json:"severity" gorm:"not null;size:10"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SafetyIncident) TableName() string {
	return "safety_incidents"
}
