package alerts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAlertNotFound is returned when no alert exists for the given ID.
var ErrAlertNotFound = errors.New("alert not found")

// AlertLevel mirrors the risk level of the assessment that raised the alert.
type AlertLevel string

const (
	LevelLow      AlertLevel = "low"
	LevelMedium   AlertLevel = "medium"
	LevelHigh     AlertLevel = "high"
	LevelCritical AlertLevel = "critical"
)

// AlertStatus tracks the investigation lifecycle of an alert.
type AlertStatus string

const (
	StatusPending       AlertStatus = "pending"
	StatusInvestigating AlertStatus = "investigating"
	StatusConfirmed     AlertStatus = "confirmed"
	StatusFalsePositive AlertStatus = "false_positive"
	StatusResolved      AlertStatus = "resolved"
)

// Alert is a fraud alert raised from a high or critical risk assessment.
// It carries the assessment's verdict plus the investigation trail added
// by analysts working the case.
type Alert struct {
	ID             uuid.UUID              `json:"id"`
	AssessmentID   uuid.UUID              `json:"assessment_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Level          AlertLevel             `json:"level"`
	Status         AlertStatus            `json:"status"`
	Score          float64                `json:"score"`
	Description    string                 `json:"description"`
	Details        map[string]interface{} `json:"details"`
	DetectedAt     time.Time              `json:"detected_at"`
	InvestigatedAt *time.Time             `json:"investigated_at,omitempty"`
	InvestigatedBy *uuid.UUID             `json:"investigated_by,omitempty"`
	ResolvedAt     *time.Time             `json:"resolved_at,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	ActionTaken    string                 `json:"action_taken,omitempty"`
}

// Open reports whether the alert still needs analyst attention.
func (a *Alert) Open() bool {
	return a.Status == StatusPending || a.Status == StatusInvestigating
}

// validStatuses lists the statuses an analyst may move an alert into.
var validResolutions = map[AlertStatus]bool{
	StatusConfirmed:     true,
	StatusFalsePositive: true,
	StatusResolved:      true,
}
