package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func marksFrom(pattern ...bool) []Mark {
	marks := make([]Mark, len(pattern))
	for i, present := range pattern {
		marks[i] = Mark{Date: dayKey(i), Present: present}
	}
	return marks
}

func dayKey(i int) string {
	return fmt.Sprintf("2024-02-%02d", i+1)
}

func TestEstimateAttendanceNoRecords(t *testing.T) {
	trend := EstimateAttendance(nil)
	assert.Equal(t, 0, trend.Records)
	assert.Equal(t, 100.0, trend.Rate)
	assert.Equal(t, 0.0, trend.Slope)
	assert.Equal(t, 100.0, trend.Projected)
}

func TestEstimateAttendanceTooFewPointsForTrend(t *testing.T) {
	trend := EstimateAttendance(marksFrom(true, false))
	assert.Equal(t, 50.0, trend.Rate)
	assert.Equal(t, 0.0, trend.Slope)
	assert.Equal(t, 50.0, trend.Projected)
}

func TestEstimateAttendanceDecliningTrend(t *testing.T) {
	trend := EstimateAttendance(marksFrom(true, true, true, false, false))
	assert.Equal(t, 5, trend.Records)
	assert.Equal(t, 3, trend.Attended)
	assert.InDelta(t, 60.0, trend.Rate, 1e-9)
	assert.InDelta(t, -0.3, trend.Slope, 1e-9)
	assert.InDelta(t, 54.0, trend.Projected, 1e-9)
}

func TestEstimateAttendanceImprovingTrendDoesNotRaiseProjection(t *testing.T) {
	trend := EstimateAttendance(marksFrom(false, false, true, true, true))
	assert.Greater(t, trend.Slope, 0.0)
	assert.Equal(t, trend.Rate, trend.Projected)
}

func TestEstimateAttendanceUsesRecentWindow(t *testing.T) {
	pattern := make([]bool, 0, 15)
	for i := 0; i < 5; i++ {
		pattern = append(pattern, false)
	}
	for i := 0; i < 10; i++ {
		pattern = append(pattern, true)
	}
	trend := EstimateAttendance(marksFrom(pattern...))
	assert.InDelta(t, 66.666, trend.Rate, 0.01)
	assert.Equal(t, 0.0, trend.Slope, "older absences fall outside the trend window")
	assert.Equal(t, trend.Rate, trend.Projected)
}
