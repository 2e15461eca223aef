package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-risk-api/internal/risk"
)

func fsFloat(v float64) *float64 { return &v }

func TestLegacyCriterionKind(t *testing.T) {
	assert.Equal(t, risk.KindActivity, legacyCriterionKind("Actividades"))
	assert.Equal(t, risk.KindActivity, legacyCriterionKind(" portafolio "))
	assert.Equal(t, risk.KindParticipation, legacyCriterionKind("Participación"))
	assert.Equal(t, risk.KindParticipation, legacyCriterionKind("PARTICIPACION"))
	assert.Equal(t, risk.KindManual, legacyCriterionKind("Examen"))
}

func TestBuildFirestoreSnapshot(t *testing.T) {
	group := fsGroup{
		Subject: "Matemáticas",
		Students: []fsStudent{
			{ID: "s-1", Name: "Ana", GAD7Score: fsFloat(14)},
			{ID: "s-2", Name: "Luis"},
		},
		Criteria: []fsCriterion{
			{ID: "c-1", Name: "Actividades", Weight: 40},
			{ID: "c-2", Name: "Participación", Weight: 10},
			{ID: "c-3", Name: "Examen", Weight: 50, ExpectedValue: 10},
		},
	}
	partial := fsPartial{
		Grades: map[string]map[string]fsGradeDetail{
			"s-1": {"c-3": {Delivered: fsFloat(9)}},
			"s-2": {"c-3": {Delivered: nil}},
		},
		Attendance: map[string]map[string]bool{
			"2024-02-03": {"s-1": true},
			"2024-02-01": {"s-1": true, "s-2": true},
			"2024-02-02": {"s-1": false, "s-2": true},
		},
		Participations: map[string]map[string]bool{
			"2024-02-01": {"s-2": true},
		},
		Activities: []fsActivity{
			{ID: "a-1", Name: "Tarea", DueDate: "2024-02-10"},
			{ID: "a-2", Name: "Proyecto", DueDate: "sin fecha"},
		},
		ActivityRecords: map[string]map[string]bool{
			"s-1": {"a-1": true, "a-2": false},
		},
		MeritGrades:    map[string]fsOverride{"s-2": {Grade: fsFloat(95), Applied: true}},
		RecoveryGrades: map[string]fsOverride{"s-1": {Grade: nil, Applied: true}},
	}
	observations := []fsObservation{
		{StudentID: "s-2", Date: "2024-02-05", Details: "se duerme en clase"},
		{StudentID: "s-2", Date: "2024-02-01", Details: "llega tarde"},
		{StudentID: "s-1", Date: "2024-02-01", Details: "  "},
	}

	snap := buildFirestoreSnapshot("g-1", "p1", group, partial, observations, storedInputs{}, zap.NewNop())

	assert.Equal(t, "Matemáticas", snap.GroupName, "subject is used when the group has no display name")
	require.Len(t, snap.Criteria, 3)
	assert.Equal(t, []risk.CriterionKind{risk.KindActivity, risk.KindParticipation, risk.KindManual},
		[]risk.CriterionKind{snap.Criteria[0].Kind, snap.Criteria[1].Kind, snap.Criteria[2].Kind})

	require.Len(t, snap.Activities, 2)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), snap.Activities[0].DueDate)
	assert.True(t, snap.Activities[1].DueDate.IsZero())

	require.Len(t, snap.Students, 2)
	ana, luis := snap.Students[0], snap.Students[1]
	assert.Equal(t, []risk.Mark{
		{Date: "2024-02-01", Present: true},
		{Date: "2024-02-02", Present: false},
		{Date: "2024-02-03", Present: true},
	}, ana.Attendance)
	assert.Equal(t, []risk.Mark{
		{Date: "2024-02-01", Present: true},
		{Date: "2024-02-02", Present: true},
		{Date: "2024-02-03", Present: false},
	}, luis.Attendance, "a day without the student's key counts as absent")
	assert.Equal(t, []risk.Session{{Date: "2024-02-01", Participated: false}}, ana.Participation)

	assert.Equal(t, 9.0, *ana.Grades["c-3"])
	assert.Nil(t, luis.Grades["c-3"])
	assert.Equal(t, map[string]bool{"a-1": true}, ana.Delivered)
	assert.Equal(t, 14.0, *ana.Screening.GAD7)
	assert.True(t, ana.Overrides.Recovery.Applied)
	assert.Nil(t, ana.Overrides.Recovery.Grade)
	assert.Equal(t, 95.0, *luis.Overrides.Merit.Grade)

	assert.Equal(t, []string{"llega tarde", "se duerme en clase"}, luis.Observations)
	assert.Nil(t, ana.Observations)
}

func TestRecentObservationsKeepsWindow(t *testing.T) {
	var obs []fsObservation
	for _, day := range []string{"07", "01", "03", "06", "02", "05", "04"} {
		obs = append(obs, fsObservation{StudentID: "s-1", Date: "2024-02-" + day, Details: "dia " + day})
	}
	got := recentObservations(obs)
	assert.Equal(t, []string{"dia 03", "dia 04", "dia 05", "dia 06", "dia 07"}, got["s-1"])
}

func TestBuildFirestoreSnapshotMergesStoredScreenings(t *testing.T) {
	group := fsGroup{
		GroupName: "3A",
		Students: []fsStudent{
			{ID: "s-1", Name: "Ana", GAD7Score: fsFloat(4), NeuropsiScore: fsFloat(90)},
			{ID: "s-2", Name: "Luis", GAD7Score: fsFloat(6)},
		},
	}
	var docObs []fsObservation
	for _, day := range []string{"01", "02", "03", "04"} {
		docObs = append(docObs, fsObservation{StudentID: "s-1", Date: "2024-02-" + day, Details: "nota " + day})
	}
	stored := storedInputs{
		screenings: map[string]risk.Screening{
			"s-1": {GAD7: fsFloat(16)},
		},
		observations: map[string][]string{
			"s-1": {"Sugerencia: tutoría", "Derivar a psicología"},
			"s-2": {"Sugerencia: instrucciones por escrito"},
		},
	}

	snap := buildFirestoreSnapshot("g-1", "p1", group, fsPartial{}, docObs, stored, zap.NewNop())

	require.Len(t, snap.Students, 2)
	ana, luis := snap.Students[0], snap.Students[1]
	assert.Equal(t, 16.0, *ana.Screening.GAD7, "stored screening overrides the document score")
	assert.Equal(t, 90.0, *ana.Screening.Cognitive, "document score kept when the stored screening has none")
	assert.Equal(t, 6.0, *luis.Screening.GAD7)
	assert.Equal(t, []string{"nota 02", "nota 03", "nota 04", "Sugerencia: tutoría", "Derivar a psicología"}, ana.Observations)
	assert.Equal(t, []string{"Sugerencia: instrucciones por escrito"}, luis.Observations)
}

func TestChunkIDs(t *testing.T) {
	ids := make([]string, 65)
	for i := range ids {
		ids[i] = fmt.Sprintf("s-%02d", i)
	}
	chunks := chunkIDs(ids, firestoreInLimit)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 30)
	assert.Len(t, chunks[1], 30)
	assert.Equal(t, []string{"s-60", "s-61", "s-62", "s-63", "s-64"}, chunks[2])

	assert.Empty(t, chunkIDs(nil, firestoreInLimit))
	assert.Equal(t, [][]string{{"a", "b"}}, chunkIDs([]string{"a", "b"}, 0))
}

func TestRosterHas(t *testing.T) {
	roster := []fsStudent{{ID: "s-1"}, {ID: "s-2"}}
	assert.True(t, rosterHas(roster, "s-2"))
	assert.False(t, rosterHas(roster, "s-3"))
}
