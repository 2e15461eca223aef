package dto

import (
	"time"

	"github.com/noah-isme/sma-risk-api/internal/models"
)

// ReportRequest captures the POST /reports payload.
type ReportRequest struct {
	Type      models.ReportType   `json:"type" validate:"required,oneof=group_risk referrals"`
	GroupID   string              `json:"groupId" validate:"required"`
	PartialID string              `json:"partialId" validate:"required,oneof=p1 p2 p3"`
	Format    models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	AsOf      *time.Time          `json:"asOf,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
