package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is a []string persisted as a JSONB array.
type StringList []string

// Value marshals the list to JSON for persistence.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON array.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported string list type %T", value)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal string list: %w", err)
	}
	*l = out
	return nil
}

// RiskAssessment is one persisted scoring of a student, kept for trend history.
type RiskAssessment struct {
	ID                string     `db:"id" json:"id"`
	StudentID         string     `db:"student_id" json:"student_id"`
	GroupID           string     `db:"group_id" json:"group_id"`
	PartialID         string     `db:"partial_id" json:"partial_id"`
	RiskLevel         string     `db:"risk_level" json:"risk_level"`
	FailingRisk       float64    `db:"failing_risk" json:"failing_risk"`
	DropoutRisk       float64    `db:"dropout_risk" json:"dropout_risk"`
	CurrentGrade      float64    `db:"current_grade" json:"current_grade"`
	CurrentAttendance float64    `db:"current_attendance" json:"current_attendance"`
	IRCScore          float64    `db:"irc_score" json:"irc_score"`
	Factors           StringList `db:"factors" json:"factors"`
	AssessedAt        time.Time  `db:"assessed_at" json:"assessed_at"`
}
