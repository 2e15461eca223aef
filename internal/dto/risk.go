package dto

import (
	"time"

	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/risk"
)

// RiskSummary counts students per level for a scored group. Referrals counts
// students whose composite index recommends a referral.
type RiskSummary struct {
	Total      int `json:"total"`
	Low        int `json:"low"`
	Medium     int `json:"medium"`
	High       int `json:"high"`
	Behavioral int `json:"behavioral"`
	Referrals  int `json:"referrals"`
}

// GroupRiskResponse is the scored roster of a group, riskiest students first.
type GroupRiskResponse struct {
	GroupID   string        `json:"group_id"`
	GroupName string        `json:"group_name"`
	PartialID string        `json:"partial_id"`
	AsOf      time.Time     `json:"as_of"`
	Summary   RiskSummary   `json:"summary"`
	Students  []risk.Result `json:"students"`
	CacheHit  bool          `json:"-"`
}

// StudentRiskResponse is the analysis of a single student within a group.
type StudentRiskResponse struct {
	GroupID   string      `json:"group_id"`
	PartialID string      `json:"partial_id"`
	AsOf      time.Time   `json:"as_of"`
	Result    risk.Result `json:"result"`
}

// AnalyzeRequest scores a snapshot supplied by the caller instead of a stored one.
type AnalyzeRequest struct {
	AsOf      *time.Time            `json:"as_of"`
	StudentID string                `json:"student_id"`
	Snapshot  *models.GroupSnapshot `json:"snapshot" validate:"required"`
}

// IRCRequest carries the inputs of the composite risk index. Scores left out count as zero.
type IRCRequest struct {
	Attendance float64  `json:"attendance" validate:"gte=0,lte=100"`
	Grade      float64  `json:"grade" validate:"gte=0,lte=100"`
	GAD7       *float64 `json:"gad7" validate:"omitempty,gte=0,lte=21"`
	Cognitive  *float64 `json:"cognitive" validate:"omitempty,gte=0,lte=100"`
}

// RiskHistoryQuery bounds the assessments returned for a student.
type RiskHistoryQuery struct {
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=200"`
}
