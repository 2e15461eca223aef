package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-risk-api/internal/dto"
	"github.com/noah-isme/sma-risk-api/internal/middleware"
	"github.com/noah-isme/sma-risk-api/internal/models"
	appErrors "github.com/noah-isme/sma-risk-api/pkg/errors"
)

type screeningServiceStub struct {
	record  *models.ScreeningRecord
	err     error
	lastReq dto.ScreeningRequest
	actor   string
}

func (s *screeningServiceStub) Ingest(ctx context.Context, req dto.ScreeningRequest, actorID string) (*models.ScreeningRecord, error) {
	s.lastReq = req
	s.actor = actorID
	return s.record, s.err
}

func TestScreeningHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &screeningServiceStub{record: &models.ScreeningRecord{ID: "scr-1", StudentID: "s-1", GroupID: "g-1"}}
	handler := NewScreeningHandler(stub)

	c, w := newGinContext(http.MethodPost, "/screenings", []byte(`{"student_id":"s-1","gad7":12,"partial_id":"p2","recommendation":"canalizar"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", stub.actor)
	assert.Equal(t, "p2", stub.lastReq.PartialID)
	require.NotNil(t, stub.lastReq.GAD7)
	assert.Equal(t, 12.0, *stub.lastReq.GAD7)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "scr-1", data["id"])
}

func TestScreeningHandlerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, w := newGinContext(http.MethodPost, "/screenings", []byte(`{}`))
	NewScreeningHandler(&screeningServiceStub{}).Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/screenings", []byte(`{"student_id":`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	NewScreeningHandler(&screeningServiceStub{}).Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/screenings", []byte(`{"student_id":"ghost","gad7":3}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	NewScreeningHandler(&screeningServiceStub{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}).Create(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
