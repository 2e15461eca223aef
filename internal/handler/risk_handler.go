package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-risk-api/internal/dto"
	"github.com/noah-isme/sma-risk-api/internal/middleware"
	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/risk"
	appErrors "github.com/noah-isme/sma-risk-api/pkg/errors"
	"github.com/noah-isme/sma-risk-api/pkg/response"
)

type riskService interface {
	AnalyzeGroup(ctx context.Context, groupID, partialID string, asOf *time.Time) (*dto.GroupRiskResponse, error)
	AnalyzeStudent(ctx context.Context, groupID, partialID, studentID string, asOf *time.Time) (*dto.StudentRiskResponse, error)
	Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.GroupRiskResponse, error)
	IRC(ctx context.Context, req dto.IRCRequest) (*risk.IRCAnalysis, error)
	Referral(ctx context.Context, groupID, partialID, studentID string, asOf *time.Time) (*risk.Referral, error)
	History(ctx context.Context, studentID string, limit int) ([]models.RiskAssessment, error)
}

// RiskHandler exposes the risk scoring endpoints.
type RiskHandler struct {
	service riskService
}

// NewRiskHandler constructs the handler.
func NewRiskHandler(service riskService) *RiskHandler {
	return &RiskHandler{service: service}
}

// GroupRisk godoc
// @Summary Risk analysis of every student in a group
// @Tags Risk
// @Produce json
// @Param groupId path string true "Group ID"
// @Param partialId path string true "Partial (p1, p2, p3)"
// @Param as_of query string false "Evaluation instant, RFC3339 or YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /groups/{groupId}/partials/{partialId}/risk [get]
func (h *RiskHandler) GroupRisk(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, err := h.service.AnalyzeGroup(c.Request.Context(), c.Param("groupId"), c.Param("partialId"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.CacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result, nil, meta)
}

// StudentRisk godoc
// @Summary Risk analysis of one student
// @Tags Risk
// @Produce json
// @Param groupId path string true "Group ID"
// @Param partialId path string true "Partial (p1, p2, p3)"
// @Param studentId path string true "Student ID"
// @Param as_of query string false "Evaluation instant, RFC3339 or YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{groupId}/partials/{partialId}/students/{studentId}/risk [get]
func (h *RiskHandler) StudentRisk(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.AnalyzeStudent(c.Request.Context(), c.Param("groupId"), c.Param("partialId"), c.Param("studentId"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// StudentReferral godoc
// @Summary Referral record for the school counsellor
// @Tags Risk
// @Produce json
// @Param groupId path string true "Group ID"
// @Param partialId path string true "Partial (p1, p2, p3)"
// @Param studentId path string true "Student ID"
// @Param as_of query string false "Evaluation instant, RFC3339 or YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/partials/{partialId}/students/{studentId}/referral [get]
func (h *RiskHandler) StudentReferral(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Referral(c.Request.Context(), c.Param("groupId"), c.Param("partialId"), c.Param("studentId"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary Persisted risk assessments of a student
// @Tags Risk
// @Produce json
// @Param studentId path string true "Student ID"
// @Param limit query int false "Maximum entries (default 20, max 200)"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/risk/history [get]
func (h *RiskHandler) History(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	items, err := h.service.History(c.Request.Context(), c.Param("studentId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Analyze godoc
// @Summary Score an inline group snapshot
// @Tags Risk
// @Accept json
// @Produce json
// @Param payload body dto.AnalyzeRequest true "Snapshot to score"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /risk/analyze [post]
func (h *RiskHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid analysis payload"))
		return
	}
	result, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// IRC godoc
// @Summary Composite risk index from raw scores
// @Tags Risk
// @Accept json
// @Produce json
// @Param payload body dto.IRCRequest true "Scores"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /risk/irc [post]
func (h *RiskHandler) IRC(c *gin.Context) {
	var req dto.IRCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid irc payload"))
		return
	}
	result, err := h.service.IRC(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
