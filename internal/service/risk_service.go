package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-risk-api/internal/dto"
	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/repository"
	"github.com/noah-isme/sma-risk-api/internal/risk"
	appErrors "github.com/noah-isme/sma-risk-api/pkg/errors"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// SnapshotSource loads everything needed to score a group for one partial.
type SnapshotSource interface {
	LoadGroupSnapshot(ctx context.Context, groupID, partialID string) (*models.GroupSnapshot, error)
}

type assessmentStore interface {
	CreateBatch(ctx context.Context, items []models.RiskAssessment) error
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.RiskAssessment, error)
}

// RiskServiceConfig tunes caching and history for the risk service.
type RiskServiceConfig struct {
	SourceName     string
	CacheTTL       time.Duration
	HistoryEnabled bool
	Keywords       []string
}

// RiskService scores groups and students loaded from a snapshot source.
type RiskService struct {
	source    SnapshotSource
	history   assessmentStore
	cache     *CacheService
	metrics   *MetricsService
	analyzer  *risk.Analyzer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RiskServiceConfig
	now       func() time.Time
}

// NewRiskService constructs the risk service. history and cache may be nil.
func NewRiskService(
	source SnapshotSource,
	history assessmentStore,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RiskServiceConfig,
) *RiskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "postgres"
	}
	return &RiskService{
		source:    source,
		history:   history,
		cache:     cache,
		metrics:   metrics,
		analyzer:  risk.NewAnalyzer(risk.WithKeywords(cfg.Keywords...)),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AnalyzeGroup scores every student of a group for a partial, riskiest first. Only the
// current analysis (asOf nil) is cached and persisted to history.
func (s *RiskService) AnalyzeGroup(ctx context.Context, groupID, partialID string, asOf *time.Time) (*dto.GroupRiskResponse, error) {
	if err := validateGroupPartial(groupID, partialID); err != nil {
		return nil, err
	}

	key := GroupRiskKey(groupID, partialID)
	if asOf == nil {
		var cached dto.GroupRiskResponse
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			cached.CacheHit = true
			return &cached, nil
		}
	}

	at := s.at(asOf)
	snap, err := s.load(ctx, groupID, partialID)
	if err != nil {
		return nil, err
	}
	resp := s.scoreSnapshot(snap, at)

	if asOf == nil {
		s.persist(ctx, snap, resp)
		_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	}
	return resp, nil
}

// AnalyzeStudent scores a single student of a group.
func (s *RiskService) AnalyzeStudent(ctx context.Context, groupID, partialID, studentID string, asOf *time.Time) (*dto.StudentRiskResponse, error) {
	if err := validateGroupPartial(groupID, partialID); err != nil {
		return nil, err
	}
	at := s.at(asOf)
	snap, err := s.load(ctx, groupID, partialID)
	if err != nil {
		return nil, err
	}
	in, ok := snap.StudentInput(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in group")
	}
	return &dto.StudentRiskResponse{
		GroupID:   groupID,
		PartialID: partialID,
		AsOf:      at,
		Result:    s.analyzer.AnalyzeAt(in, at),
	}, nil
}

// Analyze scores a snapshot supplied inline by the caller. Nothing is cached or persisted.
func (s *RiskService) Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.GroupRiskResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	snap := req.Snapshot
	if snap.PartialID != "" && !models.ValidPartial(snap.PartialID) {
		return nil, appErrors.ErrUnknownPartial
	}
	if req.StudentID != "" {
		st, ok := snap.Student(req.StudentID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in snapshot")
		}
		filtered := *snap
		filtered.Students = []models.SnapshotStudent{*st}
		snap = &filtered
	}
	return s.scoreSnapshot(snap, s.at(req.AsOf)), nil
}

// IRC computes the composite risk index from raw scores.
func (s *RiskService) IRC(ctx context.Context, req dto.IRCRequest) (*risk.IRCAnalysis, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	var gad7, cognitive float64
	if req.GAD7 != nil {
		gad7 = *req.GAD7
	}
	if req.Cognitive != nil {
		cognitive = *req.Cognitive
	}
	analysis := risk.AnalyzeIRC(req.Attendance, req.Grade, gad7, cognitive)
	return &analysis, nil
}

// Referral builds the referral record of a student from its current analysis.
func (s *RiskService) Referral(ctx context.Context, groupID, partialID, studentID string, asOf *time.Time) (*risk.Referral, error) {
	if err := validateGroupPartial(groupID, partialID); err != nil {
		return nil, err
	}
	at := s.at(asOf)
	snap, err := s.load(ctx, groupID, partialID)
	if err != nil {
		return nil, err
	}
	in, ok := snap.StudentInput(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in group")
	}
	ref := risk.BuildReferral(s.analyzer.AnalyzeAt(in, at), in.Observations, at)
	return &ref, nil
}

// History returns the persisted assessments of a student, newest first.
func (s *RiskService) History(ctx context.Context, studentID string, limit int) ([]models.RiskAssessment, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if s.history == nil {
		return []models.RiskAssessment{}, nil
	}
	items, err := s.history.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load risk history")
	}
	return items, nil
}

// Invalidate drops every cached analysis of a group.
func (s *RiskService) Invalidate(ctx context.Context, groupID string) error {
	return s.cache.Invalidate(ctx, GroupRiskPattern(groupID))
}

func (s *RiskService) at(asOf *time.Time) time.Time {
	if asOf != nil && !asOf.IsZero() {
		return asOf.UTC()
	}
	return s.now().UTC()
}

func (s *RiskService) load(ctx context.Context, groupID, partialID string) (*models.GroupSnapshot, error) {
	start := time.Now()
	snap, err := s.source.LoadGroupSnapshot(ctx, groupID, partialID)
	s.metrics.ObserveSnapshotLoad(s.cfg.SourceName, err, time.Since(start))
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "snapshot load cancelled")
		}
		s.logger.Error("snapshot load failed",
			zap.String("source", s.cfg.SourceName),
			zap.String("group_id", groupID),
			zap.String("partial_id", partialID),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, appErrors.ErrSourceUnavailable.Message)
	}
	return snap, nil
}

func (s *RiskService) scoreSnapshot(snap *models.GroupSnapshot, at time.Time) *dto.GroupRiskResponse {
	start := time.Now()
	inputs := snap.Inputs()
	results := make([]risk.Result, 0, len(inputs))
	for _, in := range inputs {
		results = append(results, s.analyzer.AnalyzeAt(in, at))
	}
	sortByRisk(results)
	s.metrics.ObserveScoring(results, time.Since(start))

	return &dto.GroupRiskResponse{
		GroupID:   snap.GroupID,
		GroupName: snap.GroupName,
		PartialID: snap.PartialID,
		AsOf:      at,
		Summary:   summarize(results),
		Students:  results,
	}
}

func (s *RiskService) persist(ctx context.Context, snap *models.GroupSnapshot, resp *dto.GroupRiskResponse) {
	if !s.cfg.HistoryEnabled || s.history == nil || len(resp.Students) == 0 {
		return
	}
	items := make([]models.RiskAssessment, 0, len(resp.Students))
	for _, res := range resp.Students {
		items = append(items, models.RiskAssessment{
			StudentID:         res.StudentID,
			GroupID:           snap.GroupID,
			PartialID:         snap.PartialID,
			RiskLevel:         string(res.Level),
			FailingRisk:       res.FailingRisk,
			DropoutRisk:       res.DropoutRisk,
			CurrentGrade:      res.CurrentGrade,
			CurrentAttendance: res.CurrentAttendance,
			IRCScore:          res.IRC.Score,
			Factors:           models.StringList(res.Factors),
			AssessedAt:        resp.AsOf,
		})
	}
	if err := s.history.CreateBatch(ctx, items); err != nil {
		s.logger.Warn("failed to persist risk history", zap.String("group_id", snap.GroupID), zap.Error(err))
	}
}

// sortByRisk orders results by descending max(failing, dropout); ties keep roster order.
func sortByRisk(results []risk.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return math.Max(results[i].FailingRisk, results[i].DropoutRisk) > math.Max(results[j].FailingRisk, results[j].DropoutRisk)
	})
}

func summarize(results []risk.Result) dto.RiskSummary {
	summary := dto.RiskSummary{Total: len(results)}
	for _, res := range results {
		switch res.Level {
		case risk.LevelHigh:
			summary.High++
		case risk.LevelMedium:
			summary.Medium++
		default:
			summary.Low++
		}
		if res.BehavioralRisk {
			summary.Behavioral++
		}
		if res.IRC.ShouldRefer {
			summary.Referrals++
		}
	}
	return summary
}

func validateGroupPartial(groupID, partialID string) error {
	if groupID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "groupId is required")
	}
	if !models.ValidPartial(partialID) {
		return appErrors.ErrUnknownPartial
	}
	return nil
}
