package analysis

import (
	"math"

	"feedback-insights-go/internal/types"
)

// npsEmotionWeights translate emotion intensities into a satisfaction
// signal on [-1,1] before projection onto the 0-10 scale.
var npsEmotionWeights = [types.NumEmotions]float64{
	types.Entusiasmo:   2.8,
	types.Gratitud:     2.5,
	types.Alegria:      2.2,
	types.Esperanza:    2.0,
	types.Aprecio:      1.8,
	types.Confianza:    1.6,
	types.Expectativa:  1.3,
	types.Enojo:        -3.0,
	types.Frustracion:  -2.7,
	types.Decepcion:    -2.4,
	types.Desagrado:    -2.1,
	types.Verguenza:    -1.8,
	types.Tristeza:     -1.5,
	types.Miedo:        -1.2,
	types.Sorpresa:     0.2,
	types.Indiferencia: -0.3,
}

const (
	// minEmotionsForInference guards against inferring from a vector that
	// is mostly zeros (a degraded or fallback analysis).
	minEmotionsForInference = 5

	sentimentAdjustment = 0.4
	churnPenaltyFactor  = 0.6

	defaultInferredScore      = 5.0
	defaultInferredConfidence = 0.2
)

// InferScore estimates a 0-10 satisfaction score for a comment that
// arrived without one. Valid original scores pass through untouched.
func InferScore(rec types.AnalysisRecord, original float64, hasOriginal bool) types.InferredScore {
	if hasOriginal && original >= 0 && original <= 10 {
		return types.InferredScore{Score: original, Confidence: 1, Inferred: false}
	}
	return inferFromAnalysis(rec)
}

func inferFromAnalysis(rec types.AnalysisRecord) types.InferredScore {
	scores := rec.Emotions
	scores.Clamp()

	if countNonZero(scores) < minEmotionsForInference {
		return types.InferredScore{
			Score:      defaultInferredScore,
			Confidence: defaultInferredConfidence,
			Inferred:   true,
		}
	}

	var weighted, totalAbs float64
	for e, w := range npsEmotionWeights {
		weighted += scores[e] * w
		totalAbs += math.Abs(w)
	}
	emotionSignal := weighted / totalAbs

	combined := emotionSignal + sentimentShift(rec.Sentiment)
	combined -= (rec.ChurnRisk - 0.5) * churnPenaltyFactor

	score := 5 + combined*3.33
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	return types.InferredScore{
		Score:      math.Round(score*10) / 10,
		Confidence: inferenceConfidence(scores, rec),
		Inferred:   true,
	}
}

func sentimentShift(s types.Sentiment) float64 {
	switch s {
	case types.SentimentPositive:
		return sentimentAdjustment
	case types.SentimentNegative:
		return -sentimentAdjustment
	default:
		return 0
	}
}

// inferenceConfidence rewards a clear dominant emotion, a non-neutral
// sentiment and a decisive churn estimate, clamped to [0.1, 0.95].
func inferenceConfidence(scores types.EmotionScores, rec types.AnalysisRecord) float64 {
	clarity := scores.Max() - scores.StdDev()
	if clarity < 0 {
		clarity = 0
	}
	conf := clarity * 0.6
	if rec.Sentiment != types.SentimentNeutral {
		conf += 0.2
	}
	conf += math.Abs(rec.ChurnRisk-0.5) * 0.4

	if conf < 0.1 {
		return 0.1
	}
	if conf > 0.95 {
		return 0.95
	}
	return conf
}

func countNonZero(scores types.EmotionScores) int {
	n := 0
	for _, v := range scores {
		if v > 0 {
			n++
		}
	}
	return n
}

// NPSSummary aggregates final scores across a dataset. NPS is the classic
// promoter share minus detractor share, in percentage points.
type NPSSummary struct {
	NPS           float64 `json:"nps"`
	Promoters     int     `json:"promoters"`
	Passives      int     `json:"passives"`
	Detractors    int     `json:"detractors"`
	Scored        int     `json:"scored"`
	Inferred      int     `json:"inferred"`
	AverageScore  float64 `json:"average_score"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// SummarizeNPS rolls up per-row scores. Rows whose category is unknown are
// excluded from the NPS ratio but still counted in Scored.
func SummarizeNPS(scores []types.InferredScore) NPSSummary {
	var s NPSSummary
	var totalScore, totalConf float64
	for _, sc := range scores {
		s.Scored++
		if sc.Inferred {
			s.Inferred++
		}
		totalScore += sc.Score
		totalConf += sc.Confidence
		switch types.CategoryForScore(sc.Score) {
		case types.NPSPromoter:
			s.Promoters++
		case types.NPSPassive:
			s.Passives++
		case types.NPSDetractor:
			s.Detractors++
		}
	}
	if s.Scored == 0 {
		return s
	}
	classified := s.Promoters + s.Passives + s.Detractors
	if classified > 0 {
		s.NPS = math.Round((float64(s.Promoters)-float64(s.Detractors))/float64(classified)*1000) / 10
	}
	s.AverageScore = math.Round(totalScore/float64(s.Scored)*100) / 100
	s.AvgConfidence = math.Round(totalConf/float64(s.Scored)*100) / 100
	return s
}
