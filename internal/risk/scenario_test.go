package risk_test

import (
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/noah-isme/sma-risk-api/internal/risk"
)

var scenarioNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }

func attendance(n int, present func(i int) bool) []risk.Mark {
	marks := make([]risk.Mark, n)
	for i := range marks {
		marks[i] = risk.Mark{Date: fmt.Sprintf("2024-02-%02d", i+1), Present: present(i)}
	}
	return marks
}

func dueActivities(n int) []risk.Activity {
	acts := make([]risk.Activity, n)
	for i := range acts {
		acts[i] = risk.Activity{ID: fmt.Sprintf("act-%d", i), Name: fmt.Sprintf("Actividad %d", i+1), DueDate: scenarioNow.AddDate(0, 0, -i-1)}
	}
	return acts
}

func baseCriteria() []risk.Criterion {
	return []risk.Criterion{
		{ID: "c-act", Name: "Actividades", Kind: risk.KindActivity, Weight: 40},
		{ID: "c-exam", Name: "Examen", Kind: risk.KindManual, Weight: 60, ExpectedValue: 10},
	}
}

func perfectStudent() risk.StudentInput {
	delivered := map[string]bool{}
	for _, a := range dueActivities(5) {
		delivered[a.ID] = true
	}
	return risk.StudentInput{
		StudentID:     "stu-perfect",
		StudentName:   "Ana",
		Attendance:    attendance(20, func(int) bool { return true }),
		Participation: []risk.Session{{Date: "2024-02-01", Participated: true}, {Date: "2024-02-02", Participated: true}},
		Criteria:      baseCriteria(),
		Grades:        map[string]*float64{"c-exam": fptr(10)},
		Activities:    dueActivities(5),
		Delivered:     delivered,
	}
}

func TestAnalyzerScenarios(t *testing.T) {
	analyzer := risk.NewAnalyzer(risk.WithClock(func() time.Time { return scenarioNow }))

	Convey("Given a student with perfect attendance and every activity delivered", t, func() {
		res := analyzer.Analyze(perfectStudent())

		Convey("The student is low risk on both models", func() {
			So(res.Level, ShouldEqual, risk.LevelLow)
			So(res.CurrentGrade, ShouldAlmostEqual, 100.0, 1e-9)
			So(res.FailingRisk, ShouldBeLessThan, 1.0)
			So(res.DropoutRisk, ShouldBeLessThan, 5.0)
			So(res.Factors, ShouldBeEmpty)
			So(res.PredictionMessage, ShouldEqual, "Rendimiento estable.")
			So(res.IRC.Level, ShouldEqual, risk.IRCBajo)
		})

		Convey("Scoring is idempotent", func() {
			So(analyzer.Analyze(perfectStudent()), ShouldResemble, res)
		})
	})

	Convey("Given a student who stopped attending and delivered nothing", t, func() {
		in := risk.StudentInput{
			StudentID:  "stu-dropout",
			Attendance: attendance(20, func(i int) bool { return i == 10 || i == 11 }),
			Criteria:   baseCriteria(),
			Grades:     map[string]*float64{},
			Activities: dueActivities(5),
		}
		res := analyzer.Analyze(in)

		Convey("The student is high risk with a negative attendance trend", func() {
			So(res.Level, ShouldEqual, risk.LevelHigh)
			So(res.DropoutRisk, ShouldBeGreaterThan, 60.0)
			So(res.AttendanceSlope, ShouldBeLessThan, 0.0)
			So(res.CurrentAttendance, ShouldAlmostEqual, 10.0, 1e-9)
			So(res.MissedActivitiesCount, ShouldEqual, 5)
			So(res.FailingRisk, ShouldBeGreaterThanOrEqualTo, 85.0)
			So(res.PredictionMessage, ShouldStartWith, "Riesgo de reprobación")
			So(res.Factors, ShouldContain, "Tendencia de asistencia negativa")
		})
	})

	Convey("Given a student who keeps delivering work but stopped attending", t, func() {
		in := perfectStudent()
		in.StudentID = "stu-absent"
		in.Attendance = attendance(20, func(i int) bool { return i == 10 || i == 11 })
		res := analyzer.Analyze(in)

		Convey("Dropout dominates the prediction message", func() {
			So(res.Level, ShouldEqual, risk.LevelHigh)
			So(res.FailingRisk, ShouldBeLessThan, 1.0)
			So(res.DropoutRisk, ShouldBeGreaterThan, 60.0)
			So(res.PredictionMessage, ShouldStartWith, "Alta probabilidad de abandono")
		})
	})

	Convey("Given a student with no attendance records and nothing evaluated", t, func() {
		in := risk.StudentInput{
			StudentID:  "stu-new",
			Criteria:   baseCriteria(),
			Activities: []risk.Activity{{ID: "future", DueDate: scenarioNow.AddDate(0, 0, 7)}},
		}
		res := analyzer.Analyze(in)

		Convey("Attendance defaults to full and both risks are zero", func() {
			So(res.CurrentAttendance, ShouldEqual, 100.0)
			So(res.DropoutRisk, ShouldEqual, 0.0)
			So(res.CurrentGrade, ShouldEqual, 100.0)
			So(res.EvaluatedWeight, ShouldEqual, 0.0)
			So(res.FailingRisk, ShouldEqual, 0.0)
			So(res.ActivityCompletion, ShouldEqual, 1.0)
		})
	})

	Convey("Given a student with grade overrides", t, func() {
		in := perfectStudent()
		in.Grades = map[string]*float64{"c-exam": fptr(2)}
		in.Overrides = risk.Overrides{
			Merit:    risk.Override{Grade: fptr(90), Applied: true},
			Recovery: risk.Override{Grade: fptr(70), Applied: true},
			Semester: fptr(55),
		}

		Convey("An applied merit grade wins", func() {
			res := analyzer.Analyze(in)
			So(res.CurrentGrade, ShouldEqual, 90.0)
			So(res.GradeSource, ShouldEqual, risk.SourceMerit)
		})

		Convey("Recovery wins when merit is not applied", func() {
			in.Overrides.Merit.Applied = false
			res := analyzer.Analyze(in)
			So(res.CurrentGrade, ShouldEqual, 70.0)
			So(res.GradeSource, ShouldEqual, risk.SourceRecovery)
		})

		Convey("An applied override with no grade is ignored", func() {
			in.Overrides.Merit = risk.Override{Applied: true}
			in.Overrides.Recovery = risk.Override{}
			res := analyzer.Analyze(in)
			So(res.CurrentGrade, ShouldEqual, 55.0)
			So(res.GradeSource, ShouldEqual, risk.SourceSemester)
		})
	})

	Convey("Given observations that mention a behavioural keyword", t, func() {
		in := perfectStudent()
		in.Observations = []string{"Se mostró IRRITABLE con sus compañeros"}
		res := analyzer.Analyze(in)

		Convey("The flag is raised without changing the level", func() {
			So(res.BehavioralRisk, ShouldBeTrue)
			So(res.BehavioralKeywords, ShouldResemble, []string{"irritable"})
			So(res.Factors, ShouldContain, "Alerta conductual en bitácora (irritable)")
			So(res.Level, ShouldEqual, risk.LevelLow)
		})

		Convey("A custom vocabulary replaces the default one", func() {
			custom := risk.NewAnalyzer(risk.WithClock(func() time.Time { return scenarioNow }), risk.WithKeywords("bullying"))
			So(custom.Analyze(in).BehavioralRisk, ShouldBeFalse)
		})
	})
}
