package risk

import "time"

// AcademicEstimate is the grade picture restricted to what has come due.
type AcademicEstimate struct {
	Grade                 float64
	EvaluatedWeight       float64
	ActivitiesInScope     int
	ActivitiesDelivered   int
	MissedActivities      int
	ActivityCompletion    float64
	ParticipationSessions int
	ParticipationCount    int
	ParticipationRatio    float64
}

// EstimateAcademic computes the weighted grade over the criteria that can be evaluated at now.
// Criteria with nothing to evaluate contribute to neither the numerator nor the denominator.
func EstimateAcademic(in StudentInput, now time.Time) AcademicEstimate {
	var est AcademicEstimate

	for _, act := range in.Activities {
		delivered := in.Delivered[act.ID]
		if !delivered && act.DueDate.After(now) {
			continue
		}
		est.ActivitiesInScope++
		if delivered {
			est.ActivitiesDelivered++
		}
	}
	est.MissedActivities = est.ActivitiesInScope - est.ActivitiesDelivered
	est.ActivityCompletion = 1
	if est.ActivitiesInScope > 0 {
		est.ActivityCompletion = float64(est.ActivitiesDelivered) / float64(est.ActivitiesInScope)
	}

	est.ParticipationSessions = len(in.Participation)
	for _, s := range in.Participation {
		if s.Participated {
			est.ParticipationCount++
		}
	}
	est.ParticipationRatio = 1
	if est.ParticipationSessions > 0 {
		est.ParticipationRatio = float64(est.ParticipationCount) / float64(est.ParticipationSessions)
	}

	var earned float64
	for _, c := range in.Criteria {
		ratio, ok := criterionRatio(c, in, est)
		if !ok {
			continue
		}
		earned += clamp(ratio, 0, 1) * c.Weight
		est.EvaluatedWeight += c.Weight
	}

	if est.EvaluatedWeight > 0 {
		est.Grade = earned / est.EvaluatedWeight * 100
	} else {
		// nothing evaluated yet: benefit of the doubt at term start
		est.Grade = 100
	}
	return est
}

func criterionRatio(c Criterion, in StudentInput, est AcademicEstimate) (float64, bool) {
	switch c.Kind {
	case KindActivity:
		if est.ActivitiesInScope == 0 {
			return 0, false
		}
		return est.ActivityCompletion, true
	case KindParticipation:
		if est.ParticipationSessions == 0 {
			return 0, false
		}
		return est.ParticipationRatio, true
	case KindManual:
		delivered := in.Grades[c.ID]
		if delivered == nil || c.ExpectedValue <= 0 {
			return 0, false
		}
		return *delivered / c.ExpectedValue, true
	default:
		return 0, false
	}
}

// ResolveGrade applies grade overrides on top of the computed estimate. Merit beats recovery,
// recovery beats a semester aggregate, and the computed grade is used only when none apply.
func ResolveGrade(computed float64, o Overrides) (float64, GradeSource) {
	switch {
	case o.Merit.active():
		return *o.Merit.Grade, SourceMerit
	case o.Recovery.active():
		return *o.Recovery.Grade, SourceRecovery
	case o.Semester != nil:
		return *o.Semester, SourceSemester
	default:
		return computed, SourceComputed
	}
}
