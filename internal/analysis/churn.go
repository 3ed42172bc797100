package analysis

import (
	"strings"

	"feedback-insights-go/internal/types"
)

// HeuristicBlendWeight is the share of the fused churn risk taken from the
// locally computed heuristic; the remainder comes from the scoring
// service's own estimate. Overridable for experimentation.
var HeuristicBlendWeight = 0.70

// Fusion weights over the five sub-scores.
const (
	weightEmotions    = 0.30
	weightKeywords    = 0.25
	weightCategory    = 0.25
	weightPainPoints  = 0.15
	weightConsistency = 0.05
)

// churnEmotionWeights drive the emotion sub-score. Negative emotions raise
// risk, positive emotions lower it; the table is disjoint in purpose from
// the NPS inference weights.
var churnEmotionWeights = [types.NumEmotions]float64{
	types.Alegria:      -0.7,
	types.Tristeza:     0.5,
	types.Enojo:        0.9,
	types.Miedo:        0.5,
	types.Confianza:    -0.8,
	types.Desagrado:    0.7,
	types.Sorpresa:     0.1,
	types.Expectativa:  -0.3,
	types.Frustracion:  0.85,
	types.Gratitud:     -0.75,
	types.Aprecio:      -0.6,
	types.Indiferencia: 0.2,
	types.Decepcion:    0.8,
	types.Entusiasmo:   -0.7,
	types.Verguenza:    0.4,
	types.Esperanza:    -0.5,
}

var highRiskKeywords = []string{
	"cancelar", "cerrar cuenta", "dar de baja", "nunca más", "nunca mas", "no vuelvo",
	"pésimo servicio", "pesimo servicio", "horrible", "terrible", "odio", "detesto",
	"cambiar de proveedor", "buscar alternativa", "competencia",
	"no recomiendo", "perdieron cliente", "última vez", "ultima vez",
}

var mediumRiskKeywords = []string{
	"decepcionado", "frustrado", "molesto", "insatisfecho",
	"problema", "queja", "reclamo", "mal servicio",
	"no cumple", "esperaba más", "esperaba mas", "no vale la pena",
}

// riskLoweringKeywords reduce the keyword sub-score: loyalty language.
var riskLoweringKeywords = []string{
	"excelente", "recomiendo", "encanta", "volveré", "volvere",
	"lo mejor", "muy bien", "seguiré", "seguire", "fiel",
}

var riskRecommendations = map[types.RiskLevel]string{
	types.RiskLow:      "Mantener la calidad del servicio y monitorear la satisfacción.",
	types.RiskMedium:   "Hacer seguimiento proactivo y resolver los problemas mencionados.",
	types.RiskHigh:     "Contactar al cliente en 48 horas con una propuesta de retención.",
	types.RiskCritical: "Escalar a retención inmediata: contacto directo en 24 horas.",
}

// ChurnInput carries everything the fusion reads for one comment.
type ChurnInput struct {
	Record       types.AnalysisRecord
	PainPoints   []types.PainPoint
	Comment      string
	Score        float64
	HasScore     bool
	Inconsistent bool // upstream sentiment/score mismatch flag
}

// FuseChurnRisk combines five independent sub-scores into one fused risk
// with level, contributing factors, indicators and confidence.
func FuseChurnRisk(in ChurnInput) types.ChurnAnalysis {
	factors := map[string]float64{
		"emotions":    emotionRiskScore(in.Record.Emotions),
		"keywords":    keywordRiskScore(in.Comment),
		"category":    categoryRiskScore(in.Score, in.HasScore),
		"pain_points": painPointRiskScore(in.PainPoints),
		"consistency": consistencyRiskScore(in.Inconsistent),
	}

	heuristic := factors["emotions"]*weightEmotions +
		factors["keywords"]*weightKeywords +
		factors["category"]*weightCategory +
		factors["pain_points"]*weightPainPoints +
		factors["consistency"]*weightConsistency

	fused := clamp01(HeuristicBlendWeight*heuristic + (1-HeuristicBlendWeight)*in.Record.ChurnRisk)

	indicators := collectIndicators(in)
	level := RiskLevelFor(fused)

	return types.ChurnAnalysis{
		ChurnRisk:      fused,
		Level:          level,
		Factors:        factors,
		Indicators:     indicators,
		Confidence:     fusionConfidence(factors, indicators),
		Recommendation: riskRecommendations[level],
	}
}

// RiskLevelFor buckets a fused risk score.
func RiskLevelFor(risk float64) types.RiskLevel {
	switch {
	case risk >= 0.8:
		return types.RiskCritical
	case risk >= 0.6:
		return types.RiskHigh
	case risk >= 0.3:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

// emotionRiskScore maps the weighted emotion sum from [-1,1] to [0,1].
// The normalizer is the fixed total absolute weight, so raising any
// risk-weighted emotion can only raise the score.
func emotionRiskScore(scores types.EmotionScores) float64 {
	var weighted, totalAbs float64
	for e, w := range churnEmotionWeights {
		weighted += scores[e] * w
		if w < 0 {
			totalAbs -= w
		} else {
			totalAbs += w
		}
	}
	if totalAbs == 0 {
		return 0
	}
	return clamp01((weighted/totalAbs + 1) / 2)
}

func keywordRiskScore(comment string) float64 {
	if comment == "" {
		return 0
	}
	lower := strings.ToLower(comment)
	score := 0.0
	for _, kw := range highRiskKeywords {
		if strings.Contains(lower, kw) {
			score += 0.3
		}
	}
	for _, kw := range mediumRiskKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}
	for _, kw := range riskLoweringKeywords {
		if strings.Contains(lower, kw) {
			score -= 0.1
		}
	}
	return clamp01(score)
}

// categoryRiskScore maps the satisfaction band to a base risk, modulated
// within the band by the raw score. No score reads as neutral.
func categoryRiskScore(score float64, hasScore bool) float64 {
	if !hasScore {
		return 0.5
	}
	switch {
	case score <= 6:
		return clamp01(0.7 + (6-score)*0.05)
	case score <= 8:
		return clamp01(0.4 + (8-score)*0.05)
	default:
		return clamp01(0.15 + (10-score)*0.05)
	}
}

// painPointRiskScore scales mean impact by how many points were reported.
func painPointRiskScore(points []types.PainPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var total float64
	for _, p := range points {
		total += p.Impact
	}
	mean := total / float64(len(points))
	scale := float64(len(points)) / 3
	if scale > 1 {
		scale = 1
	}
	return clamp01(mean * scale)
}

func consistencyRiskScore(inconsistent bool) float64 {
	if inconsistent {
		return 1
	}
	return 0
}

func collectIndicators(in ChurnInput) []string {
	var indicators []string
	lower := strings.ToLower(in.Comment)

	if containsAnyKeyword(lower, highRiskKeywords) {
		indicators = append(indicators, "explicit_cancellation_intent")
	}
	if containsAnyKeyword(lower, mediumRiskKeywords) {
		indicators = append(indicators, "dissatisfaction_indicators")
	}
	if in.Record.Sentiment == types.SentimentNegative {
		indicators = append(indicators, "negative_sentiment")
	}

	strongNegatives := 0
	for _, e := range types.NegativeEmotions {
		if in.Record.Emotions[e] > 0.6 {
			strongNegatives++
		}
	}
	if strongNegatives >= 2 {
		indicators = append(indicators, "high_negative_emotions")
	}
	if in.Record.Emotions.GroupMean(types.PositiveEmotions) < 0.2 && in.Record.Sentiment != types.SentimentPositive {
		indicators = append(indicators, "low_positive_emotions")
	}
	if len(in.PainPoints) >= 2 {
		indicators = append(indicators, "multiple_pain_points")
	}
	if in.Inconsistent {
		indicators = append(indicators, "score_sentiment_mismatch")
	}
	return indicators
}

// fusionConfidence blends how many sub-factors were non-trivial (>= 0.1)
// with how many textual indicators were found, clamped to [0.1, 1].
func fusionConfidence(factors map[string]float64, indicators []string) float64 {
	nonTrivial := 0
	for _, v := range factors {
		if v >= 0.1 {
			nonTrivial++
		}
	}
	factorTerm := float64(nonTrivial) / float64(len(factors))
	indicatorTerm := float64(len(indicators)) * 0.2
	if indicatorTerm > 1 {
		indicatorTerm = 1
	}
	conf := factorTerm*0.7 + indicatorTerm*0.3
	if conf < 0.1 {
		return 0.1
	}
	if conf > 1 {
		return 1
	}
	return conf
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
