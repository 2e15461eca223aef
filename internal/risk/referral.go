package risk

import "time"

// Flag is a referral category forwarded to the tutoring/clinical team.
type Flag string

const (
	FlagAttendance Flag = "RIESGO_ASISTENCIA"
	FlagAcademic   Flag = "RIESGO_ACADEMICO"
	FlagExecutive  Flag = "RIESGO_EJECUTIVO"
	FlagBehavioral Flag = "RIESGO_CONDUCTUAL"
)

const referralLogLimit = 5

// AcademicData is the numeric summary attached to a referral.
type AcademicData struct {
	Average        float64 `json:"average"`
	AttendanceRate float64 `json:"attendance_rate"`
	CompletionRate float64 `json:"completion_rate"`
}

// Referral is the hand-off record for a student flagged by the scorer.
type Referral struct {
	StudentID    string       `json:"student_id"`
	Timestamp    time.Time    `json:"timestamp"`
	AcademicData AcademicData `json:"academic_data"`
	Flags        []Flag       `json:"flags"`
	LogSummary   []string     `json:"log_summary"`
}

// BuildReferral derives referral flags from a scored result. Average is on a 0-10 scale.
func BuildReferral(res Result, observations []string, at time.Time) Referral {
	ref := Referral{
		StudentID: res.StudentID,
		Timestamp: at.UTC(),
		AcademicData: AcademicData{
			Average:        res.CurrentGrade / 10,
			AttendanceRate: res.CurrentAttendance,
			CompletionRate: res.ActivityCompletion * 100,
		},
		Flags: make([]Flag, 0, 4),
	}
	if res.CurrentAttendance < factorAttendance {
		ref.Flags = append(ref.Flags, FlagAttendance)
	}
	if res.CurrentGrade < factorGrade && res.EvaluatedWeight > 0 {
		ref.Flags = append(ref.Flags, FlagAcademic)
	}
	if res.ActivityCompletion < factorCompletion {
		ref.Flags = append(ref.Flags, FlagExecutive)
	}
	if res.BehavioralRisk {
		ref.Flags = append(ref.Flags, FlagBehavioral)
	}

	logs := observations
	if len(logs) > referralLogLimit {
		logs = logs[len(logs)-referralLogLimit:]
	}
	ref.LogSummary = append([]string{}, logs...)
	return ref
}
