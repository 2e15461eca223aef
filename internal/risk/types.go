// Package risk scores a student's academic and dropout risk from the attendance, grading and
// screening data a group already holds in memory. Every function in this package is pure: the
// only time dependency is the "now" used for activity due dates, and it is always injected.
package risk

import (
	"fmt"
	"strings"
	"time"
)

// Level is the overall risk classification.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// CriterionKind tells the estimator how a criterion's ratio is obtained.
type CriterionKind int

const (
	// KindManual criteria are graded by hand against an expected value.
	KindManual CriterionKind = iota
	// KindActivity criteria are computed from activity deliveries (activities, portfolio).
	KindActivity
	// KindParticipation criteria are computed from the participation log.
	KindParticipation
)

var criterionKindNames = map[CriterionKind]string{
	KindManual:        "manual",
	KindActivity:      "activity",
	KindParticipation: "participation",
}

// String returns the persisted name of the kind.
func (k CriterionKind) String() string {
	if name, ok := criterionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseCriterionKind maps a persisted name back to its kind.
func ParseCriterionKind(raw string) (CriterionKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "manual", "":
		return KindManual, nil
	case "activity":
		return KindActivity, nil
	case "participation":
		return KindParticipation, nil
	default:
		return KindManual, fmt.Errorf("unknown criterion kind %q", raw)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k CriterionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CriterionKind) UnmarshalText(text []byte) error {
	kind, err := ParseCriterionKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Criterion is a weighted grading component. Weight is expressed in percentage points.
type Criterion struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Kind          CriterionKind `json:"kind"`
	Weight        float64       `json:"weight"`
	ExpectedValue float64       `json:"expected_value"`
}

// Activity is a deliverable with a due date.
type Activity struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	DueDate time.Time `json:"due_date"`
}

// Mark is one registered attendance day for a student.
type Mark struct {
	Date    string `json:"date"`
	Present bool   `json:"present"`
}

// Session is one recorded participation session for a student.
type Session struct {
	Date         string `json:"date"`
	Participated bool   `json:"participated"`
}

// Override is a manually assigned final grade.
type Override struct {
	Grade   *float64 `json:"grade"`
	Applied bool     `json:"applied"`
}

func (o Override) active() bool {
	return o.Applied && o.Grade != nil
}

// Overrides groups the grade overrides for a student, in priority order.
type Overrides struct {
	Merit    Override `json:"merit"`
	Recovery Override `json:"recovery"`
	Semester *float64 `json:"semester,omitempty"`
}

// Screening holds optional clinical screening scores.
type Screening struct {
	GAD7      *float64 `json:"gad7,omitempty"`
	Cognitive *float64 `json:"cognitive,omitempty"`
}

// StudentInput is everything the scorer needs for one student.
type StudentInput struct {
	StudentID     string
	StudentName   string
	Attendance    []Mark
	Participation []Session
	Criteria      []Criterion
	Grades        map[string]*float64
	Activities    []Activity
	Delivered     map[string]bool
	Overrides     Overrides
	Observations  []string
	Screening     Screening
}

// GradeSource records where the reported grade came from.
type GradeSource string

const (
	SourceComputed GradeSource = "computed"
	SourceSemester GradeSource = "semester"
	SourceRecovery GradeSource = "recovery"
	SourceMerit    GradeSource = "merit"
)

// Result is the full risk analysis for one student.
type Result struct {
	StudentID             string      `json:"student_id"`
	StudentName           string      `json:"student_name"`
	CurrentGrade          float64     `json:"current_grade"`
	ProjectedGrade        float64     `json:"projected_grade"`
	GradeSource           GradeSource `json:"grade_source"`
	EvaluatedWeight       float64     `json:"evaluated_weight"`
	CurrentAttendance     float64     `json:"current_attendance"`
	ProjectedAttendance   float64     `json:"projected_attendance"`
	AttendanceSlope       float64     `json:"attendance_slope"`
	ActivityCompletion    float64     `json:"activity_completion"`
	MissedActivitiesCount int         `json:"missed_activities_count"`
	LowParticipation      bool        `json:"low_participation"`
	FailingRisk           float64     `json:"failing_risk"`
	DropoutRisk           float64     `json:"dropout_risk"`
	Level                 Level       `json:"risk_level"`
	Factors               []string    `json:"risk_factors"`
	PredictionMessage     string      `json:"prediction_message"`
	BehavioralRisk        bool        `json:"behavioral_risk"`
	BehavioralKeywords    []string    `json:"behavioral_keywords,omitempty"`
	IRC                   IRCAnalysis `json:"irc"`
}
