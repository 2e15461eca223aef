package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/risk"
)

// ErrGroupNotFound is returned when the requested group does not exist in the snapshot source.
var ErrGroupNotFound = errors.New("group not found")

// ErrStudentNotFound is returned when no group of the snapshot source lists the student.
var ErrStudentNotFound = errors.New("student not found")

// ObservationWindow is how many recent observations per student feed the behavioural flag.
const ObservationWindow = 5

const (
	snapshotGroupQuery = `SELECT id, name FROM groups WHERE id = $1`

	snapshotStudentGroupQuery = `SELECT group_id FROM students WHERE id = $1`

	snapshotStudentsQuery = `SELECT id, group_id, full_name FROM students WHERE group_id = $1 ORDER BY full_name ASC, id ASC`

	snapshotCriteriaQuery = `SELECT id, name, kind, weight, expected_value FROM grading_criteria
WHERE group_id = $1 AND partial_id = $2 ORDER BY position ASC, id ASC`

	snapshotActivitiesQuery = `SELECT id, name, due_date FROM activities
WHERE group_id = $1 AND partial_id = $2 ORDER BY due_date ASC, id ASC`

	snapshotDeliveriesQuery = `SELECT d.activity_id, d.student_id, d.delivered FROM activity_deliveries d
JOIN activities a ON a.id = d.activity_id WHERE a.group_id = $1 AND a.partial_id = $2`

	snapshotAttendanceQuery = `SELECT student_id, day, present FROM attendance_marks
WHERE group_id = $1 AND partial_id = $2 ORDER BY recorded_at ASC, day ASC`

	snapshotParticipationQuery = `SELECT student_id, day, participated FROM participation_marks
WHERE group_id = $1 AND partial_id = $2 ORDER BY recorded_at ASC, day ASC`

	snapshotGradesQuery = `SELECT e.criterion_id, e.student_id, e.value FROM grade_entries e
JOIN grading_criteria c ON c.id = e.criterion_id WHERE c.group_id = $1 AND c.partial_id = $2`

	snapshotOverridesQuery = `SELECT student_id, merit_grade, merit_applied, recovery_grade, recovery_applied, semester_grade
FROM grade_overrides WHERE group_id = $1 AND partial_id = $2`

	snapshotObservationsQuery = `SELECT student_id, body FROM (
SELECT student_id, body, created_at, ROW_NUMBER() OVER (PARTITION BY student_id ORDER BY created_at DESC) AS rn
FROM observations WHERE group_id = $1 AND partial_id = $2) o
WHERE rn <= $3 ORDER BY student_id ASC, created_at ASC`

	snapshotScreeningsQuery = `SELECT DISTINCT ON (student_id) student_id, gad7, cognitive FROM screenings
WHERE group_id = $1 ORDER BY student_id, recorded_at DESC`
)

type criterionRow struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	Kind          string  `db:"kind"`
	Weight        float64 `db:"weight"`
	ExpectedValue float64 `db:"expected_value"`
}

type activityRow struct {
	ID      string    `db:"id"`
	Name    string    `db:"name"`
	DueDate time.Time `db:"due_date"`
}

type deliveryRow struct {
	ActivityID string `db:"activity_id"`
	StudentID  string `db:"student_id"`
	Delivered  bool   `db:"delivered"`
}

type markRow struct {
	StudentID string `db:"student_id"`
	Day       string `db:"day"`
	Present   bool   `db:"present"`
}

type participationRow struct {
	StudentID    string `db:"student_id"`
	Day          string `db:"day"`
	Participated bool   `db:"participated"`
}

type gradeRow struct {
	CriterionID string          `db:"criterion_id"`
	StudentID   string          `db:"student_id"`
	Value       sql.NullFloat64 `db:"value"`
}

type overrideRow struct {
	StudentID       string   `db:"student_id"`
	MeritGrade      *float64 `db:"merit_grade"`
	MeritApplied    bool     `db:"merit_applied"`
	RecoveryGrade   *float64 `db:"recovery_grade"`
	RecoveryApplied bool     `db:"recovery_applied"`
	SemesterGrade   *float64 `db:"semester_grade"`
}

type observationRow struct {
	StudentID string `db:"student_id"`
	Body      string `db:"body"`
}

type screeningRow struct {
	StudentID string   `db:"student_id"`
	GAD7      *float64 `db:"gad7"`
	Cognitive *float64 `db:"cognitive"`
}

// snapshotRows is the raw result of the snapshot queries before assembly.
type snapshotRows struct {
	group         models.Group
	students      []models.Student
	criteria      []criterionRow
	activities    []activityRow
	deliveries    []deliveryRow
	attendance    []markRow
	participation []participationRow
	grades        []gradeRow
	overrides     []overrideRow
	observations  []observationRow
	screenings    []screeningRow
}

// SnapshotRepository loads group snapshots from PostgreSQL.
type SnapshotRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB, logger *zap.Logger) *SnapshotRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotRepository{db: db, logger: logger}
}

// LoadGroupSnapshot reads everything the scorer needs for a group and partial. The per-table
// queries run concurrently once the group is known to exist. A missing group yields
// ErrGroupNotFound.
func (r *SnapshotRepository) LoadGroupSnapshot(ctx context.Context, groupID, partialID string) (*models.GroupSnapshot, error) {
	var rows snapshotRows
	if err := r.db.GetContext(ctx, &rows.group, snapshotGroupQuery, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get group %s: %w", groupID, ErrGroupNotFound)
		}
		return nil, fmt.Errorf("get group %s: %w", groupID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	load := func(dest interface{}, what, query string, args ...interface{}) {
		g.Go(func() error {
			if err := r.db.SelectContext(gctx, dest, query, args...); err != nil {
				return fmt.Errorf("load %s: %w", what, err)
			}
			return nil
		})
	}
	load(&rows.students, "students", snapshotStudentsQuery, groupID)
	load(&rows.criteria, "criteria", snapshotCriteriaQuery, groupID, partialID)
	load(&rows.activities, "activities", snapshotActivitiesQuery, groupID, partialID)
	load(&rows.deliveries, "deliveries", snapshotDeliveriesQuery, groupID, partialID)
	load(&rows.attendance, "attendance", snapshotAttendanceQuery, groupID, partialID)
	load(&rows.participation, "participation", snapshotParticipationQuery, groupID, partialID)
	load(&rows.grades, "grades", snapshotGradesQuery, groupID, partialID)
	load(&rows.overrides, "overrides", snapshotOverridesQuery, groupID, partialID)
	load(&rows.observations, "observations", snapshotObservationsQuery, groupID, partialID, ObservationWindow)
	load(&rows.screenings, "screenings", snapshotScreeningsQuery, groupID)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return r.assemble(partialID, rows), nil
}

// StudentGroup returns the group a student is enrolled in.
func (r *SnapshotRepository) StudentGroup(ctx context.Context, studentID string) (string, error) {
	var groupID string
	if err := r.db.GetContext(ctx, &groupID, snapshotStudentGroupQuery, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("get student %s: %w", studentID, ErrStudentNotFound)
		}
		return "", fmt.Errorf("get student %s: %w", studentID, err)
	}
	return groupID, nil
}

func (r *SnapshotRepository) assemble(partialID string, rows snapshotRows) *models.GroupSnapshot {
	snap := &models.GroupSnapshot{
		GroupID:    rows.group.ID,
		GroupName:  rows.group.Name,
		PartialID:  partialID,
		Criteria:   make([]risk.Criterion, 0, len(rows.criteria)),
		Activities: make([]risk.Activity, 0, len(rows.activities)),
		Students:   make([]models.SnapshotStudent, 0, len(rows.students)),
	}

	for _, c := range rows.criteria {
		kind, err := risk.ParseCriterionKind(c.Kind)
		if err != nil {
			r.logger.Warn("unknown criterion kind, scoring as manual", zap.String("criterion_id", c.ID), zap.String("kind", c.Kind))
		}
		snap.Criteria = append(snap.Criteria, risk.Criterion{
			ID:            c.ID,
			Name:          c.Name,
			Kind:          kind,
			Weight:        c.Weight,
			ExpectedValue: c.ExpectedValue,
		})
	}
	for _, a := range rows.activities {
		snap.Activities = append(snap.Activities, risk.Activity{ID: a.ID, Name: a.Name, DueDate: a.DueDate})
	}

	index := make(map[string]*models.SnapshotStudent, len(rows.students))
	for _, s := range rows.students {
		snap.Students = append(snap.Students, models.SnapshotStudent{
			ID:        s.ID,
			Name:      s.FullName,
			Grades:    map[string]*float64{},
			Delivered: map[string]bool{},
		})
	}
	for i := range snap.Students {
		index[snap.Students[i].ID] = &snap.Students[i]
	}

	for _, m := range rows.attendance {
		if st, ok := index[m.StudentID]; ok {
			st.Attendance = append(st.Attendance, risk.Mark{Date: m.Day, Present: m.Present})
		}
	}
	for _, p := range rows.participation {
		if st, ok := index[p.StudentID]; ok {
			st.Participation = append(st.Participation, risk.Session{Date: p.Day, Participated: p.Participated})
		}
	}
	for _, d := range rows.deliveries {
		if st, ok := index[d.StudentID]; ok && d.Delivered {
			st.Delivered[d.ActivityID] = true
		}
	}
	for _, gr := range rows.grades {
		st, ok := index[gr.StudentID]
		if !ok {
			continue
		}
		if gr.Value.Valid {
			v := gr.Value.Float64
			st.Grades[gr.CriterionID] = &v
		} else {
			st.Grades[gr.CriterionID] = nil
		}
	}
	for _, o := range rows.overrides {
		if st, ok := index[o.StudentID]; ok {
			st.Overrides = risk.Overrides{
				Merit:    risk.Override{Grade: o.MeritGrade, Applied: o.MeritApplied},
				Recovery: risk.Override{Grade: o.RecoveryGrade, Applied: o.RecoveryApplied},
				Semester: o.SemesterGrade,
			}
		}
	}
	for _, o := range rows.observations {
		if st, ok := index[o.StudentID]; ok {
			st.Observations = append(st.Observations, o.Body)
		}
	}
	for _, s := range rows.screenings {
		if st, ok := index[s.StudentID]; ok {
			st.Screening = risk.Screening{GAD7: s.GAD7, Cognitive: s.Cognitive}
		}
	}

	return snap
}
