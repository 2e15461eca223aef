package risk

import (
	"fmt"
	"time"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock sets the time source used for activity due dates.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithKeywords replaces the behavioural vocabulary. An empty list keeps the default.
func WithKeywords(keywords ...string) Option {
	return func(a *Analyzer) {
		if len(keywords) > 0 {
			a.matcher = NewKeywordMatcher(keywords...)
		}
	}
}

// Analyzer runs the full scoring pipeline for a student. It holds only configuration and is
// safe for concurrent use.
type Analyzer struct {
	now     func() time.Time
	matcher *KeywordMatcher
}

// NewAnalyzer constructs an Analyzer with the default vocabulary and the wall clock.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		now:     time.Now,
		matcher: NewKeywordMatcher(DefaultKeywords...),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores a student as of the analyzer's clock.
func (a *Analyzer) Analyze(in StudentInput) Result {
	return a.AnalyzeAt(in, a.now())
}

// AnalyzeAt scores a student as of now.
func (a *Analyzer) AnalyzeAt(in StudentInput, now time.Time) Result {
	attendance := EstimateAttendance(in.Attendance)
	academic := EstimateAcademic(in, now)

	grade, source := ResolveGrade(academic.Grade, in.Overrides)
	evaluated := academic.EvaluatedWeight
	if source != SourceComputed {
		// an override is a final grade
		evaluated = 100
	}

	signals := Signals{
		Grade:                 grade,
		ActivityCompletion:    academic.ActivityCompletion,
		EvaluatedWeight:       evaluated,
		Attendance:            attendance.Rate,
		AttendanceSlope:       attendance.Slope,
		AttendanceRecords:     attendance.Records,
		ParticipationRatio:    academic.ParticipationRatio,
		ParticipationSessions: academic.ParticipationSessions,
	}

	failing := FailingRisk(signals)
	dropout := DropoutRisk(signals)
	level := AssignLevel(failing, dropout)

	factors := riskFactors(signals, academic.MissedActivities, academic.ActivitiesInScope)
	keywords := a.matcher.Match(in.Observations)
	if len(keywords) > 0 {
		factors = append(factors, fmt.Sprintf("Alerta conductual en bitácora (%s)", keywords[0]))
	}

	var gad7, cognitive float64
	if in.Screening.GAD7 != nil {
		gad7 = *in.Screening.GAD7
	}
	if in.Screening.Cognitive != nil {
		cognitive = *in.Screening.Cognitive
	}

	return Result{
		StudentID:             in.StudentID,
		StudentName:           in.StudentName,
		CurrentGrade:          grade,
		ProjectedGrade:        grade,
		GradeSource:           source,
		EvaluatedWeight:       evaluated,
		CurrentAttendance:     attendance.Rate,
		ProjectedAttendance:   attendance.Projected,
		AttendanceSlope:       attendance.Slope,
		ActivityCompletion:    academic.ActivityCompletion,
		MissedActivitiesCount: academic.MissedActivities,
		LowParticipation:      isLowParticipation(signals),
		FailingRisk:           failing,
		DropoutRisk:           dropout,
		Level:                 level,
		Factors:               factors,
		PredictionMessage:     predictionMessage(level, failing, dropout),
		BehavioralRisk:        len(keywords) > 0,
		BehavioralKeywords:    keywords,
		IRC:                   AnalyzeIRC(attendance.Rate, grade, gad7, cognitive),
	}
}
