package risk

import (
	"fmt"
	"math"
)

// Failing-risk logistic model.
const (
	failingIntercept      = 4.0
	failingGradeWeight    = -0.08
	failingActivityWeight = -3.5
	failingConfidenceAt   = 20.0
	failingFloorGrade     = 60.0
	failingFloorWeight    = 20.0
	failingFloor          = 85.0
)

// Dropout-risk logistic model.
const (
	dropoutIntercept        = -2.0
	dropoutAttendanceWeight = -0.05
	dropoutAttendancePivot  = 70.0
	dropoutSlopeWeight      = -10.0
	lowParticipationRatio   = 0.3
	lowParticipationPenalty = 15.0
	dropoutPenaltyCap       = 99.0
)

// Level thresholds.
const (
	highDropout   = 60.0
	highFailing   = 70.0
	mediumDropout = 30.0
	mediumFailing = 40.0
)

// Display-only factor thresholds.
const (
	factorAttendance      = 85.0
	factorCompletion      = 0.6
	factorSlope           = -0.05
	factorGrade           = 60.0
	factorEvaluatedWeight = 10.0
)

// Signals are the inputs shared by the failing and dropout models.
type Signals struct {
	Grade                 float64
	ActivityCompletion    float64
	EvaluatedWeight       float64
	Attendance            float64
	AttendanceSlope       float64
	AttendanceRecords     int
	ParticipationRatio    float64
	ParticipationSessions int
}

// FailingRisk returns the probability (0-100) that the student fails the partial.
func FailingRisk(s Signals) float64 {
	if s.EvaluatedWeight <= 0 {
		return 0
	}
	z := failingIntercept + failingGradeWeight*s.Grade + failingActivityWeight*s.ActivityCompletion
	confidence := math.Min(1, s.EvaluatedWeight/failingConfidenceAt)
	p := sigmoid(z*confidence) * 100
	if s.Grade < failingFloorGrade && s.EvaluatedWeight > failingFloorWeight {
		p = math.Max(p, failingFloor)
	}
	return p
}

// DropoutRisk returns the probability (0-100) that the student abandons the course.
func DropoutRisk(s Signals) float64 {
	if s.AttendanceRecords == 0 {
		return 0
	}
	z := dropoutIntercept +
		dropoutAttendanceWeight*(s.Attendance-dropoutAttendancePivot) +
		dropoutSlopeWeight*s.AttendanceSlope
	p := sigmoid(z) * 100
	if isLowParticipation(s) {
		p = math.Max(p, math.Min(p+lowParticipationPenalty, dropoutPenaltyCap))
	}
	return p
}

// AssignLevel buckets the two probabilities into an overall level.
func AssignLevel(failing, dropout float64) Level {
	switch {
	case dropout > highDropout || failing > highFailing:
		return LevelHigh
	case dropout > mediumDropout || failing > mediumFailing:
		return LevelMedium
	default:
		return LevelLow
	}
}

func isLowParticipation(s Signals) bool {
	return s.ParticipationSessions > 0 && s.ParticipationRatio < lowParticipationRatio
}

// riskFactors re-checks the thresholds and emits one phrase per triggered condition.
func riskFactors(s Signals, missed int, activitiesInScope int) []string {
	factors := make([]string, 0, 5)
	if s.AttendanceRecords > 0 && s.Attendance < factorAttendance {
		factors = append(factors, fmt.Sprintf("Inasistencias críticas (%.0f%%)", 100-s.Attendance))
	}
	if activitiesInScope > 0 && s.ActivityCompletion < factorCompletion {
		factors = append(factors, fmt.Sprintf("Actividades no entregadas (%d)", missed))
	}
	if s.AttendanceSlope < factorSlope {
		factors = append(factors, "Tendencia de asistencia negativa")
	}
	if s.Grade < factorGrade && s.EvaluatedWeight > factorEvaluatedWeight {
		factors = append(factors, fmt.Sprintf("Promedio reprobatorio (%.1f)", s.Grade))
	}
	if isLowParticipation(s) {
		factors = append(factors, "Baja participación")
	}
	return factors
}

func predictionMessage(level Level, failing, dropout float64) string {
	switch level {
	case LevelHigh:
		if dropout > failing {
			return fmt.Sprintf("Alta probabilidad de abandono (%.0f%%). Tendencia de asistencia negativa.", dropout)
		}
		return fmt.Sprintf("Riesgo de reprobación (%.0f%%). Se requiere mejorar entrega de actividades.", failing)
	case LevelMedium:
		return "Se observan señales de riesgo temprano."
	default:
		return "Rendimiento estable."
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
