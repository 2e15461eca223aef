package models

import "time"

// ScreeningRecord stores clinical screening scores received for a student.
type ScreeningRecord struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	GroupID        string    `db:"group_id" json:"group_id"`
	GAD7           *float64  `db:"gad7" json:"gad7,omitempty"`
	Cognitive      *float64  `db:"cognitive" json:"cognitive,omitempty"`
	Recommendation *string   `db:"recommendation" json:"recommendation,omitempty"`
	Source         string    `db:"source" json:"source"`
	RecordedBy     string    `db:"recorded_by" json:"recorded_by"`
	RecordedAt     time.Time `db:"recorded_at" json:"recorded_at"`
}

// Observation is a free-text log entry about a student.
type Observation struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	PartialID string    `db:"partial_id" json:"partial_id"`
	Body      string    `db:"body" json:"body"`
	Author    string    `db:"author" json:"author"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
