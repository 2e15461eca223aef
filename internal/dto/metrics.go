package dto

import "time"

// SystemMetrics is a JSON snapshot of the Prometheus counters kept in process.
type SystemMetrics struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	StudentsScored           uint64            `json:"students_scored"`
	AverageScoringDurationMs float64           `json:"average_scoring_duration_ms"`
	RiskLevels               map[string]uint64 `json:"risk_levels"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
