package analysis

import (
	"feedback-insights-go/internal/types"
)

// intensityNormalizer caps the realistic total emotion mass; about half the
// emotions fully active saturates intensity at 1.
const intensityNormalizer = 8.0

// SummarizeEmotions derives per-comment emotion metrics from a validated
// score vector: overall intensity, dominant emotion, valence category and
// positive/negative balance.
func SummarizeEmotions(scores types.EmotionScores) types.EmotionSummary {
	scores.Clamp()

	intensity := scores.Sum() / intensityNormalizer
	if intensity > 1 {
		intensity = 1
	}

	positive := scores.GroupSum(types.PositiveEmotions)
	negative := scores.GroupSum(types.NegativeEmotions)
	neutral := scores.GroupSum(types.NeutralEmotions)

	valence := types.SentimentNeutral
	switch {
	case positive > negative && positive > neutral:
		valence = types.SentimentPositive
	case negative > positive && negative > neutral:
		valence = types.SentimentNegative
	}

	balance := 0.0
	if total := positive + negative; total > 0 {
		balance = (positive - negative) / total
	}

	return types.EmotionSummary{
		Intensity: intensity,
		Dominant:  scores.Dominant(),
		Valence:   valence,
		Balance:   balance,
	}
}
