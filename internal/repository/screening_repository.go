package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/risk"
)

// ScreeningRepository stores clinical screening results and the observations they produce.
type ScreeningRepository struct {
	db *sqlx.DB
}

// NewScreeningRepository constructs the repository.
func NewScreeningRepository(db *sqlx.DB) *ScreeningRepository {
	return &ScreeningRepository{db: db}
}

// LatestScreenings returns the most recent stored screening of every student in a group.
func (r *ScreeningRepository) LatestScreenings(ctx context.Context, groupID string) (map[string]risk.Screening, error) {
	var rows []screeningRow
	if err := r.db.SelectContext(ctx, &rows, snapshotScreeningsQuery, groupID); err != nil {
		return nil, fmt.Errorf("load screenings: %w", err)
	}
	out := make(map[string]risk.Screening, len(rows))
	for _, row := range rows {
		out[row.StudentID] = risk.Screening{GAD7: row.GAD7, Cognitive: row.Cognitive}
	}
	return out, nil
}

// RecentObservations returns the last ObservationWindow stored observations per student, oldest first.
func (r *ScreeningRepository) RecentObservations(ctx context.Context, groupID, partialID string) (map[string][]string, error) {
	var rows []observationRow
	if err := r.db.SelectContext(ctx, &rows, snapshotObservationsQuery, groupID, partialID, ObservationWindow); err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	out := make(map[string][]string)
	for _, row := range rows {
		out[row.StudentID] = append(out[row.StudentID], row.Body)
	}
	return out, nil
}

// Save stores a screening and, when given, the observation derived from it, atomically.
func (r *ScreeningRepository) Save(ctx context.Context, record *models.ScreeningRecord, obs *models.Observation) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin screening: %w", err)
	}
	const insertScreening = `INSERT INTO screenings (id, student_id, group_id, gad7, cognitive, recommendation, source, recorded_by, recorded_at)
VALUES (:id, :student_id, :group_id, :gad7, :cognitive, :recommendation, :source, :recorded_by, :recorded_at)`
	if _, err := tx.NamedExecContext(ctx, insertScreening, record); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert screening: %w", err)
	}

	if obs != nil {
		if obs.ID == "" {
			obs.ID = uuid.NewString()
		}
		if obs.CreatedAt.IsZero() {
			obs.CreatedAt = record.RecordedAt
		}
		const insertObservation = `INSERT INTO observations (id, group_id, partial_id, student_id, body, author, created_at)
VALUES (:id, :group_id, :partial_id, :student_id, :body, :author, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertObservation, obs); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert screening observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit screening: %w", err)
	}
	return nil
}
