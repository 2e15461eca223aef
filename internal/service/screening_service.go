package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-risk-api/internal/dto"
	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/repository"
	appErrors "github.com/noah-isme/sma-risk-api/pkg/errors"
)

const defaultScreeningSource = "PIGEC-130"

// StudentGroupResolver finds the group a student is enrolled in. Implementations return
// repository.ErrStudentNotFound for unknown students.
type StudentGroupResolver interface {
	StudentGroup(ctx context.Context, studentID string) (string, error)
}

type screeningStore interface {
	Save(ctx context.Context, record *models.ScreeningRecord, obs *models.Observation) error
}

type riskInvalidator interface {
	Invalidate(ctx context.Context, groupID string) error
}

// ScreeningService ingests clinical screening results into the risk inputs of a student.
type ScreeningService struct {
	groups    StudentGroupResolver
	repo      screeningStore
	risk      riskInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScreeningService constructs the service. groups should resolve through the same source
// the risk service scores from.
func NewScreeningService(groups StudentGroupResolver, repo screeningStore, risk riskInvalidator, validate *validator.Validate, logger *zap.Logger) *ScreeningService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScreeningService{groups: groups, repo: repo, risk: risk, validator: validate, logger: logger}
}

// Ingest stores the scores, logs the recommendation as an observation of the partial and
// drops cached analyses of the student's group.
func (s *ScreeningService) Ingest(ctx context.Context, req dto.ScreeningRequest, actorID string) (*models.ScreeningRecord, error) {
	req.Recommendation = strings.TrimSpace(req.Recommendation)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	groupID, err := s.groups.StudentGroup(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student group")
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = defaultScreeningSource
	}
	record := &models.ScreeningRecord{
		StudentID:  req.StudentID,
		GroupID:    groupID,
		GAD7:       req.GAD7,
		Cognitive:  req.Cognitive,
		Source:     source,
		RecordedBy: actorID,
	}

	var obs *models.Observation
	if req.Recommendation != "" {
		rec := req.Recommendation
		record.Recommendation = &rec
		obs = &models.Observation{
			StudentID: req.StudentID,
			GroupID:   groupID,
			PartialID: req.PartialID,
			Body:      rec,
			Author:    source,
		}
	}

	if err := s.repo.Save(ctx, record, obs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store screening")
	}

	if s.risk != nil {
		if err := s.risk.Invalidate(ctx, groupID); err != nil {
			s.logger.Warn("failed to invalidate risk cache after screening", zap.String("group_id", groupID), zap.Error(err))
		}
	}
	s.logger.Info("screening ingested",
		zap.String("student_id", req.StudentID),
		zap.String("group_id", groupID),
		zap.String("source", source),
		zap.Bool("observation", obs != nil))
	return record, nil
}
