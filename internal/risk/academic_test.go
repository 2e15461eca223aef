package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var academicNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func TestEstimateAcademicNothingEvaluated(t *testing.T) {
	in := StudentInput{
		Criteria: []Criterion{
			{ID: "exam", Kind: KindManual, Weight: 50, ExpectedValue: 10},
			{ID: "acts", Kind: KindActivity, Weight: 30},
			{ID: "part", Kind: KindParticipation, Weight: 20},
		},
		Activities: []Activity{{ID: "a1", DueDate: day(4, 1)}},
	}
	est := EstimateAcademic(in, academicNow)
	assert.Equal(t, 100.0, est.Grade)
	assert.Equal(t, 0.0, est.EvaluatedWeight)
	assert.Equal(t, 1.0, est.ActivityCompletion)
	assert.Equal(t, 0, est.ActivitiesInScope)
}

func TestEstimateAcademicManualCriteria(t *testing.T) {
	in := StudentInput{
		Criteria: []Criterion{
			{ID: "exam", Kind: KindManual, Weight: 40, ExpectedValue: 10},
			{ID: "project", Kind: KindManual, Weight: 30, ExpectedValue: 10},
			{ID: "broken", Kind: KindManual, Weight: 30, ExpectedValue: 0},
		},
		Grades: map[string]*float64{
			"exam":   ptr(8),
			"broken": ptr(5),
		},
	}
	est := EstimateAcademic(in, academicNow)
	assert.InDelta(t, 80.0, est.Grade, 1e-9)
	assert.Equal(t, 40.0, est.EvaluatedWeight)
}

func TestEstimateAcademicZeroDeliveredIsEvaluated(t *testing.T) {
	in := StudentInput{
		Criteria: []Criterion{{ID: "exam", Kind: KindManual, Weight: 40, ExpectedValue: 10}},
		Grades:   map[string]*float64{"exam": ptr(0)},
	}
	est := EstimateAcademic(in, academicNow)
	assert.Equal(t, 0.0, est.Grade)
	assert.Equal(t, 40.0, est.EvaluatedWeight)
}

func TestEstimateAcademicClampsRatio(t *testing.T) {
	in := StudentInput{
		Criteria: []Criterion{{ID: "exam", Kind: KindManual, Weight: 40, ExpectedValue: 10}},
		Grades:   map[string]*float64{"exam": ptr(12)},
	}
	est := EstimateAcademic(in, academicNow)
	assert.Equal(t, 100.0, est.Grade)
}

func TestEstimateAcademicActivitiesScope(t *testing.T) {
	in := StudentInput{
		Criteria: []Criterion{{ID: "acts", Name: "Actividades", Kind: KindActivity, Weight: 50}},
		Activities: []Activity{
			{ID: "a1", DueDate: day(3, 1)},
			{ID: "a2", DueDate: day(3, 10)},
			{ID: "a3", DueDate: day(4, 1)},
			{ID: "a4", DueDate: day(4, 10)},
			{ID: "a5", DueDate: day(3, 15)},
		},
		Delivered: map[string]bool{"a1": true, "a3": true, "a5": true},
	}
	est := EstimateAcademic(in, academicNow)
	assert.Equal(t, 4, est.ActivitiesInScope, "early delivery and due-today count, future undelivered does not")
	assert.Equal(t, 3, est.ActivitiesDelivered)
	assert.Equal(t, 1, est.MissedActivities)
	assert.InDelta(t, 0.75, est.ActivityCompletion, 1e-9)
	assert.InDelta(t, 75.0, est.Grade, 1e-9)
	assert.Equal(t, 50.0, est.EvaluatedWeight)
}

func TestEstimateAcademicParticipation(t *testing.T) {
	in := StudentInput{
		Criteria: []Criterion{{ID: "part", Kind: KindParticipation, Weight: 10}},
		Participation: []Session{
			{Date: "2024-03-01", Participated: true},
			{Date: "2024-03-02"},
			{Date: "2024-03-03"},
			{Date: "2024-03-04"},
		},
	}
	est := EstimateAcademic(in, academicNow)
	assert.Equal(t, 4, est.ParticipationSessions)
	assert.InDelta(t, 0.25, est.ParticipationRatio, 1e-9)
	assert.InDelta(t, 25.0, est.Grade, 1e-9)
}

func TestEstimateAcademicMixedCriteria(t *testing.T) {
	in := StudentInput{
		Criteria: []Criterion{
			{ID: "exam", Kind: KindManual, Weight: 40, ExpectedValue: 10},
			{ID: "acts", Kind: KindActivity, Weight: 40},
			{ID: "part", Kind: KindParticipation, Weight: 20},
		},
		Grades:     map[string]*float64{"exam": ptr(6)},
		Activities: []Activity{{ID: "a1", DueDate: day(3, 1)}, {ID: "a2", DueDate: day(3, 2)}},
		Delivered:  map[string]bool{"a1": true},
	}
	est := EstimateAcademic(in, academicNow)
	// (0.6*40 + 0.5*40) / 80
	assert.InDelta(t, 55.0, est.Grade, 1e-9)
	assert.Equal(t, 80.0, est.EvaluatedWeight)
}

func TestResolveGradePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		overrides Overrides
		grade     float64
		source    GradeSource
	}{
		{name: "computed", grade: 72, source: SourceComputed},
		{name: "semester", overrides: Overrides{Semester: ptr(81)}, grade: 81, source: SourceSemester},
		{name: "recovery beats semester", overrides: Overrides{Semester: ptr(81), Recovery: Override{Grade: ptr(70), Applied: true}}, grade: 70, source: SourceRecovery},
		{name: "merit beats recovery", overrides: Overrides{Recovery: Override{Grade: ptr(70), Applied: true}, Merit: Override{Grade: ptr(95), Applied: true}}, grade: 95, source: SourceMerit},
		{name: "unapplied merit ignored", overrides: Overrides{Merit: Override{Grade: ptr(95)}}, grade: 72, source: SourceComputed},
		{name: "applied without grade ignored", overrides: Overrides{Merit: Override{Applied: true}, Recovery: Override{Grade: ptr(65), Applied: true}}, grade: 65, source: SourceRecovery},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			grade, source := ResolveGrade(72, tc.overrides)
			assert.Equal(t, tc.grade, grade)
			assert.Equal(t, tc.source, source)
		})
	}
}

func TestCriterionKindText(t *testing.T) {
	for _, kind := range []CriterionKind{KindManual, KindActivity, KindParticipation} {
		text, err := kind.MarshalText()
		assert.NoError(t, err)
		var parsed CriterionKind
		assert.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, kind, parsed)
	}
	_, err := ParseCriterionKind("bonus")
	assert.Error(t, err)
}
