package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-risk-api/internal/dto"
	"github.com/noah-isme/sma-risk-api/internal/models"
	appErrors "github.com/noah-isme/sma-risk-api/pkg/errors"
	"github.com/noah-isme/sma-risk-api/pkg/response"
)

type screeningService interface {
	Ingest(ctx context.Context, req dto.ScreeningRequest, actorID string) (*models.ScreeningRecord, error)
}

// ScreeningHandler receives clinical screening results.
type ScreeningHandler struct {
	service screeningService
}

// NewScreeningHandler constructs the handler.
func NewScreeningHandler(service screeningService) *ScreeningHandler {
	return &ScreeningHandler{service: service}
}

// Create godoc
// @Summary Record screening scores for a student
// @Tags Screenings
// @Accept json
// @Produce json
// @Param payload body dto.ScreeningRequest true "Screening scores"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /screenings [post]
func (h *ScreeningHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ScreeningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid screening payload"))
		return
	}
	record, err := h.service.Ingest(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
