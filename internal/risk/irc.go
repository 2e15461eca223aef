package risk

import (
	"fmt"
	"strings"
)

// IRCLevel is the composite index bucket.
type IRCLevel string

const (
	IRCBajo  IRCLevel = "bajo"
	IRCMedio IRCLevel = "medio"
	IRCAlto  IRCLevel = "alto"
)

// Composite risk index (IRC) coefficients.
const (
	ircIntercept        = -3.0
	ircAttendanceWeight = 1.5
	ircGradeWeight      = 1.0
	ircAnxietyWeight    = 0.8
	ircGradeCutoff      = 70.0
	ircAnxietyMax       = 21.0
	ircMedio            = 15.0
	ircAlto             = 25.0
)

// IRCAnalysis is the composite index with its interpretation.
type IRCAnalysis struct {
	Score          float64  `json:"score"`
	Level          IRCLevel `json:"level"`
	Justification  string   `json:"justification"`
	Recommendation string   `json:"recommendation"`
	ShouldRefer    bool     `json:"should_refer"`
}

// CalculateIRC returns the composite risk index (0-100) from attendance, grade and the GAD-7
// anxiety score. It is independent of the failing and dropout models.
func CalculateIRC(attendance, grade, gad7 float64) float64 {
	x1 := (100 - attendance) / 100
	x2 := 0.0
	if grade <= ircGradeCutoff {
		x2 = 1
	}
	x3 := gad7 / ircAnxietyMax
	z := ircIntercept + ircAttendanceWeight*x1 + ircGradeWeight*x2 + ircAnxietyWeight*x3
	return sigmoid(z) * 100
}

// AnalyzeIRC computes and interprets the composite index. Missing scores are passed as zero.
func AnalyzeIRC(attendance, grade, gad7, cognitive float64) IRCAnalysis {
	score := CalculateIRC(attendance, grade, gad7)

	level := IRCBajo
	switch {
	case score >= ircAlto:
		level = IRCAlto
	case score >= ircMedio:
		level = IRCMedio
	}

	causes := make([]string, 0, 4)
	if attendance < factorAttendance {
		causes = append(causes, fmt.Sprintf("Inasistencia (%.1f%%)", 100-attendance))
	}
	if grade <= ircGradeCutoff {
		causes = append(causes, fmt.Sprintf("Descenso académico (%.1f)", grade))
	}
	if gad7 >= 10 {
		causes = append(causes, fmt.Sprintf("Ansiedad moderada/severa (GAD-7: %g)", gad7))
	}
	if cognitive > 0 && cognitive < 70 {
		causes = append(causes, fmt.Sprintf("Neuropsi bajo (%g)", cognitive))
	}

	justification := "Sin factores de riesgo detectados"
	if len(causes) > 0 {
		justification = "Causa: " + strings.Join(causes, " + ")
	}

	return IRCAnalysis{
		Score:          score,
		Level:          level,
		Justification:  justification,
		Recommendation: ircRecommendation(level),
		ShouldRefer:    score >= ircAlto,
	}
}

func ircRecommendation(level IRCLevel) string {
	switch level {
	case IRCAlto:
		return "Derivación inmediata a evaluación profunda (WISC-V)."
	case IRCMedio:
		return "Aplicar apoyos focalizados en aula (checklists, pausas)."
	default:
		return "Mantener monitoreo preventivo."
	}
}
