package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-risk-api/internal/models"
)

// AssessmentRepository persists scored risk results for trend history.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const insertAssessmentQuery = `INSERT INTO risk_assessments (id, student_id, group_id, partial_id, risk_level, failing_risk, dropout_risk, current_grade, current_attendance, irc_score, factors, assessed_at)
VALUES (:id, :student_id, :group_id, :partial_id, :risk_level, :failing_risk, :dropout_risk, :current_grade, :current_attendance, :irc_score, :factors, :assessed_at)`

// CreateBatch stores a set of assessments in a single transaction.
func (r *AssessmentRepository) CreateBatch(ctx context.Context, items []models.RiskAssessment) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].AssessedAt.IsZero() {
			items[i].AssessedAt = now
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assessment batch: %w", err)
	}
	for i := range items {
		if _, err := tx.NamedExecContext(ctx, insertAssessmentQuery, items[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert assessment for %s: %w", items[i].StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment batch: %w", err)
	}
	return nil
}

// ListByStudent returns the most recent assessments of a student, newest first.
func (r *AssessmentRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.RiskAssessment, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, student_id, group_id, partial_id, risk_level, failing_risk, dropout_risk, current_grade, current_attendance, irc_score, factors, assessed_at
FROM risk_assessments WHERE student_id = $1 ORDER BY assessed_at DESC LIMIT $2`
	items := make([]models.RiskAssessment, 0)
	if err := r.db.SelectContext(ctx, &items, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("list risk assessments: %w", err)
	}
	return items, nil
}
