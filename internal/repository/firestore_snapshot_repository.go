package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/risk"
)

const (
	groupsCollection       = "groups"
	partialsCollection     = "partials"
	observationsCollection = "observations"
	firestoreDateLayout    = "2006-01-02"
)

type fsStudent struct {
	ID            string   `firestore:"id"`
	Name          string   `firestore:"name"`
	GAD7Score     *float64 `firestore:"gad7Score"`
	NeuropsiScore *float64 `firestore:"neuropsiScore"`
}

type fsCriterion struct {
	ID            string  `firestore:"id"`
	Name          string  `firestore:"name"`
	Weight        float64 `firestore:"weight"`
	ExpectedValue float64 `firestore:"expectedValue"`
}

type fsGroup struct {
	Subject   string        `firestore:"subject"`
	GroupName string        `firestore:"groupName"`
	Students  []fsStudent   `firestore:"students"`
	Criteria  []fsCriterion `firestore:"criteria"`
}

type fsGradeDetail struct {
	Delivered *float64 `firestore:"delivered"`
}

type fsOverride struct {
	Grade   *float64 `firestore:"grade"`
	Applied bool     `firestore:"applied"`
}

type fsActivity struct {
	ID      string `firestore:"id"`
	Name    string `firestore:"name"`
	DueDate string `firestore:"dueDate"`
}

type fsPartial struct {
	Grades          map[string]map[string]fsGradeDetail `firestore:"grades"`
	Attendance      map[string]map[string]bool          `firestore:"attendance"`
	Participations  map[string]map[string]bool          `firestore:"participations"`
	Activities      []fsActivity                        `firestore:"activities"`
	ActivityRecords map[string]map[string]bool          `firestore:"activityRecords"`
	RecoveryGrades  map[string]fsOverride               `firestore:"recoveryGrades"`
	MeritGrades     map[string]fsOverride               `firestore:"meritGrades"`
}

type fsObservation struct {
	StudentID string `firestore:"studentId"`
	PartialID string `firestore:"partialId"`
	Date      string `firestore:"date"`
	Type      string `firestore:"type"`
	Details   string `firestore:"details"`
}

// firestoreInLimit is the most values a single "in" filter accepts.
const firestoreInLimit = 30

// StoredScreenings supplies screening results and observations recorded by this service, which
// live outside the grading web application's documents.
type StoredScreenings interface {
	LatestScreenings(ctx context.Context, groupID string) (map[string]risk.Screening, error)
	RecentObservations(ctx context.Context, groupID, partialID string) (map[string][]string, error)
}

// storedInputs is what StoredScreenings returned for one snapshot.
type storedInputs struct {
	screenings   map[string]risk.Screening
	observations map[string][]string
}

// FirestoreSnapshotRepository loads group snapshots from the document layout used by the
// grading web application: groups/{groupId} holds the roster and criteria,
// groups/{groupId}/partials/{partialId} holds the partial's records.
type FirestoreSnapshotRepository struct {
	client *firestore.Client
	stored StoredScreenings
	logger *zap.Logger
}

// NewFirestoreSnapshotRepository constructs the repository. stored may be nil, in which case
// only the scores on the student documents are used.
func NewFirestoreSnapshotRepository(client *firestore.Client, stored StoredScreenings, logger *zap.Logger) *FirestoreSnapshotRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreSnapshotRepository{client: client, stored: stored, logger: logger}
}

// LoadGroupSnapshot reads the group document first, then the partial, the roster's observations
// and the stored screenings concurrently. A partial with no document yet is treated as empty.
func (r *FirestoreSnapshotRepository) LoadGroupSnapshot(ctx context.Context, groupID, partialID string) (*models.GroupSnapshot, error) {
	var (
		group   fsGroup
		partial fsPartial
		stored  storedInputs
	)
	groupRef := r.client.Collection(groupsCollection).Doc(groupID)

	doc, err := groupRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("get group %s: %w", groupID, ErrGroupNotFound)
		}
		return nil, fmt.Errorf("get group %s: %w", groupID, err)
	}
	if err := doc.DataTo(&group); err != nil {
		return nil, fmt.Errorf("decode group %s: %w", groupID, err)
	}

	roster := make([]string, 0, len(group.Students))
	for _, st := range group.Students {
		if st.ID != "" {
			roster = append(roster, st.ID)
		}
	}
	chunks := chunkIDs(roster, firestoreInLimit)
	observations := make([][]fsObservation, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := groupRef.Collection(partialsCollection).Doc(partialID).Get(gctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return fmt.Errorf("get partial %s/%s: %w", groupID, partialID, err)
		}
		if err := doc.DataTo(&partial); err != nil {
			return fmt.Errorf("decode partial %s/%s: %w", groupID, partialID, err)
		}
		return nil
	})
	for i, ids := range chunks {
		i, ids := i, ids
		g.Go(func() error {
			list, err := r.listObservations(gctx, partialID, ids)
			if err != nil {
				return err
			}
			observations[i] = list
			return nil
		})
	}
	if r.stored != nil {
		g.Go(func() error {
			screenings, err := r.stored.LatestScreenings(gctx, groupID)
			if err != nil {
				return err
			}
			stored.screenings = screenings
			return nil
		})
		g.Go(func() error {
			obs, err := r.stored.RecentObservations(gctx, groupID, partialID)
			if err != nil {
				return err
			}
			stored.observations = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []fsObservation
	for _, list := range observations {
		all = append(all, list...)
	}
	return buildFirestoreSnapshot(groupID, partialID, group, partial, all, stored, r.logger), nil
}

func (r *FirestoreSnapshotRepository) listObservations(ctx context.Context, partialID string, studentIDs []string) ([]fsObservation, error) {
	iter := r.client.Collection(observationsCollection).
		Where("partialId", "==", partialID).
		Where("studentId", "in", studentIDs).
		Documents(ctx)
	defer iter.Stop()

	var out []fsObservation
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list observations: %w", err)
		}
		var obs fsObservation
		if err := doc.DataTo(&obs); err != nil {
			r.logger.Warn("skipping malformed observation", zap.String("doc_id", doc.Ref.ID), zap.Error(err))
			continue
		}
		out = append(out, obs)
	}
}

// StudentGroup finds the group whose roster lists the student. Rosters are embedded in the
// group documents, so only their students field is read.
func (r *FirestoreSnapshotRepository) StudentGroup(ctx context.Context, studentID string) (string, error) {
	iter := r.client.Collection(groupsCollection).Select("students").Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", fmt.Errorf("get student %s: %w", studentID, ErrStudentNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("list groups: %w", err)
		}
		var group fsGroup
		if err := doc.DataTo(&group); err != nil {
			r.logger.Warn("skipping malformed group", zap.String("doc_id", doc.Ref.ID), zap.Error(err))
			continue
		}
		if rosterHas(group.Students, studentID) {
			return doc.Ref.ID, nil
		}
	}
}

func rosterHas(students []fsStudent, studentID string) bool {
	for _, st := range students {
		if st.ID == studentID {
			return true
		}
	}
	return false
}

// chunkIDs splits ids into consecutive slices of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var chunks [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		chunks = append(chunks, ids[:n:n])
		ids = ids[n:]
	}
	return chunks
}

// legacyCriterionKind maps the fixed criterion names of the web application to kinds.
func legacyCriterionKind(name string) risk.CriterionKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "actividades", "portafolio":
		return risk.KindActivity
	case "participación", "participacion":
		return risk.KindParticipation
	default:
		return risk.KindManual
	}
}

func buildFirestoreSnapshot(groupID, partialID string, group fsGroup, partial fsPartial, observations []fsObservation, stored storedInputs, logger *zap.Logger) *models.GroupSnapshot {
	name := group.GroupName
	if name == "" {
		name = group.Subject
	}
	snap := &models.GroupSnapshot{
		GroupID:    groupID,
		GroupName:  name,
		PartialID:  partialID,
		Criteria:   make([]risk.Criterion, 0, len(group.Criteria)),
		Activities: make([]risk.Activity, 0, len(partial.Activities)),
		Students:   make([]models.SnapshotStudent, 0, len(group.Students)),
	}

	for _, c := range group.Criteria {
		snap.Criteria = append(snap.Criteria, risk.Criterion{
			ID:            c.ID,
			Name:          c.Name,
			Kind:          legacyCriterionKind(c.Name),
			Weight:        c.Weight,
			ExpectedValue: c.ExpectedValue,
		})
	}

	for _, a := range partial.Activities {
		due, err := time.ParseInLocation(firestoreDateLayout, a.DueDate, time.UTC)
		if err != nil {
			logger.Warn("activity due date unparseable, treating as due", zap.String("activity_id", a.ID), zap.String("due_date", a.DueDate))
		}
		snap.Activities = append(snap.Activities, risk.Activity{ID: a.ID, Name: a.Name, DueDate: due})
	}

	attendanceDays := sortedKeys(partial.Attendance)
	participationDays := sortedKeys(partial.Participations)
	recent := recentObservations(observations)

	for _, st := range group.Students {
		s := models.SnapshotStudent{
			ID:            st.ID,
			Name:          st.Name,
			Attendance:    make([]risk.Mark, 0, len(attendanceDays)),
			Participation: make([]risk.Session, 0, len(participationDays)),
			Grades:        map[string]*float64{},
			Delivered:     map[string]bool{},
			Observations:  mergeObservations(recent[st.ID], stored.observations[st.ID]),
			Screening:     risk.Screening{GAD7: st.GAD7Score, Cognitive: st.NeuropsiScore},
		}
		if sc, ok := stored.screenings[st.ID]; ok {
			if sc.GAD7 != nil {
				s.Screening.GAD7 = sc.GAD7
			}
			if sc.Cognitive != nil {
				s.Screening.Cognitive = sc.Cognitive
			}
		}
		// every registered day counts for the whole roster; an absent key is an absence
		for _, day := range attendanceDays {
			s.Attendance = append(s.Attendance, risk.Mark{Date: day, Present: partial.Attendance[day][st.ID]})
		}
		for _, day := range participationDays {
			s.Participation = append(s.Participation, risk.Session{Date: day, Participated: partial.Participations[day][st.ID]})
		}
		for criterionID, detail := range partial.Grades[st.ID] {
			s.Grades[criterionID] = detail.Delivered
		}
		for activityID, delivered := range partial.ActivityRecords[st.ID] {
			if delivered {
				s.Delivered[activityID] = true
			}
		}
		if o, ok := partial.MeritGrades[st.ID]; ok {
			s.Overrides.Merit = risk.Override{Grade: o.Grade, Applied: o.Applied}
		}
		if o, ok := partial.RecoveryGrades[st.ID]; ok {
			s.Overrides.Recovery = risk.Override{Grade: o.Grade, Applied: o.Applied}
		}
		snap.Students = append(snap.Students, s)
	}

	return snap
}

// recentObservations keeps the last ObservationWindow entries per student, oldest first.
func recentObservations(observations []fsObservation) map[string][]string {
	byStudent := make(map[string][]fsObservation)
	for _, o := range observations {
		if o.StudentID == "" || strings.TrimSpace(o.Details) == "" {
			continue
		}
		byStudent[o.StudentID] = append(byStudent[o.StudentID], o)
	}
	out := make(map[string][]string, len(byStudent))
	for id, list := range byStudent {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date < list[j].Date })
		if len(list) > ObservationWindow {
			list = list[len(list)-ObservationWindow:]
		}
		texts := make([]string, 0, len(list))
		for _, o := range list {
			texts = append(texts, o.Details)
		}
		out[id] = texts
	}
	return out
}

// mergeObservations appends stored observations after the document ones and keeps the
// last ObservationWindow.
func mergeObservations(documents, stored []string) []string {
	if len(stored) == 0 {
		return documents
	}
	merged := make([]string, 0, len(documents)+len(stored))
	merged = append(merged, documents...)
	merged = append(merged, stored...)
	if len(merged) > ObservationWindow {
		merged = merged[len(merged)-ObservationWindow:]
	}
	return merged
}

// sortedKeys returns ISO date keys in calendar order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
