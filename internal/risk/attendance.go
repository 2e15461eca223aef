package risk

const (
	trendWindow      = 10
	trendMinPoints   = 3
	trendHorizonDays = 20
)

// AttendanceTrend summarises a student's attendance history.
type AttendanceTrend struct {
	Records   int
	Attended  int
	Rate      float64
	Slope     float64
	Projected float64
}

// EstimateAttendance computes the current attendance rate and the short-term trend over the
// most recent marks. Marks must be in registration order.
func EstimateAttendance(marks []Mark) AttendanceTrend {
	trend := AttendanceTrend{Records: len(marks)}
	for _, m := range marks {
		if m.Present {
			trend.Attended++
		}
	}

	if trend.Records == 0 {
		trend.Rate = 100
	} else {
		trend.Rate = float64(trend.Attended) / float64(trend.Records) * 100
	}

	recent := marks
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	trend.Slope = presenceSlope(recent)

	trend.Projected = trend.Rate
	if trend.Slope < 0 {
		trend.Projected = clamp(trend.Rate+trend.Slope*trendHorizonDays, 0, 100)
	}
	return trend
}

// presenceSlope fits an ordinary least-squares line of presence (0/1) against the index.
func presenceSlope(marks []Mark) float64 {
	n := len(marks)
	if n < trendMinPoints {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, m := range marks {
		x := float64(i)
		y := 0.0
		if m.Present {
			y = 1
		}
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denominator := nf*sumXX - sumX*sumX
	if denominator == 0 {
		return 0
	}
	return (nf*sumXY - sumX*sumY) / denominator
}
