package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-insights-go/internal/types"
)

func scoresWith(values map[types.Emotion]float64) types.EmotionScores {
	var s types.EmotionScores
	for e, v := range values {
		s[e] = v
	}
	return s
}

func TestSummarizeEmotionsPositive(t *testing.T) {
	s := scoresWith(map[types.Emotion]float64{
		types.Alegria:   0.8,
		types.Gratitud:  0.6,
		types.Confianza: 0.5,
		types.Tristeza:  0.1,
	})
	sum := SummarizeEmotions(s)
	assert.Equal(t, types.Alegria, sum.Dominant)
	assert.Equal(t, types.SentimentPositive, sum.Valence)
	assert.Greater(t, sum.Balance, 0.8)
	assert.InDelta(t, 0.25, sum.Intensity, 0.001)
}

func TestSummarizeEmotionsNegative(t *testing.T) {
	s := scoresWith(map[types.Emotion]float64{
		types.Enojo:       0.9,
		types.Frustracion: 0.7,
	})
	sum := SummarizeEmotions(s)
	assert.Equal(t, types.Enojo, sum.Dominant)
	assert.Equal(t, types.SentimentNegative, sum.Valence)
	assert.Less(t, sum.Balance, -0.9)
}

func TestSummarizeEmotionsEmptyVector(t *testing.T) {
	sum := SummarizeEmotions(types.EmotionScores{})
	assert.Equal(t, types.Indiferencia, sum.Dominant)
	assert.Equal(t, types.SentimentNeutral, sum.Valence)
	assert.Zero(t, sum.Intensity)
	assert.Zero(t, sum.Balance)
}

func TestCategorizePainPoint(t *testing.T) {
	cases := map[string]string{
		"el precio es demasiado caro":        CategoryPrecio,
		"mucha demora en la entrega":         CategoryTiempo,
		"no responden los mensajes":          CategoryComunicacion,
		"el producto llegó defectuoso":       CategoryProducto,
		"demasiados requisitos y trámites":   CategoryProceso,
		"queja sin palabras clave conocidas": CategoryServicio,
	}
	for text, want := range cases {
		assert.Equal(t, want, CategorizePainPoint(text), "text %q", text)
	}
}

func TestSeverityRules(t *testing.T) {
	assert.Equal(t, SeverityAlta, SeverityFromText("un servicio pésimo e inaceptable"))
	assert.Equal(t, SeverityMedia, SeverityFromText("bastante decepcionante la verdad"))
	assert.Equal(t, SeverityBaja, SeverityFromText("podría mejorar un poco"))

	assert.Equal(t, SeverityAlta, SeverityForRecord(0.8, 1))
	assert.Equal(t, SeverityAlta, SeverityForRecord(0.2, 3))
	assert.Equal(t, SeverityMedia, SeverityForRecord(0.5, 1))
	assert.Equal(t, SeverityBaja, SeverityForRecord(0.1, 1))
}

func TestImpactScoreAmplifiedByNegativeEmotions(t *testing.T) {
	calm := ImpactScore(SeverityAlta, CategoryServicio, types.EmotionScores{})
	angry := ImpactScore(SeverityAlta, CategoryServicio, scoresWith(map[types.Emotion]float64{
		types.Enojo:       0.9,
		types.Frustracion: 0.8,
	}))
	assert.Greater(t, angry, calm)
	assert.LessOrEqual(t, angry, 1.0)
}

func TestEnrichPainPointsOrdersAndCaps(t *testing.T) {
	rec := types.AnalysisRecord{
		Emotions: scoresWith(map[types.Emotion]float64{types.Enojo: 0.8}),
		PainPoints: []string{
			"precio caro", "mucha demora", "personal grosero",
			"producto defectuoso", "no responden", "trámite burocrático",
			"precio caro", // duplicate
		},
		ChurnRisk: 0.8,
	}
	points := EnrichPainPoints(rec)
	require.Len(t, points, 5, "capped at five after dedupe")
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i-1].Impact, points[i].Impact)
	}
	for _, p := range points {
		assert.Equal(t, SeverityAlta, p.Severity, "record-level severity wins")
	}
}

func TestAggregatePainPoints(t *testing.T) {
	rows := [][]types.PainPoint{
		{{Category: CategoryPrecio, Impact: 0.5}, {Category: CategoryTiempo, Impact: 0.3}},
		{{Category: CategoryPrecio, Impact: 0.7}},
	}
	agg := AggregatePainPoints(rows)
	require.Len(t, agg, 2)
	assert.Equal(t, CategoryPrecio, agg[0].Category)
	assert.Equal(t, 2, agg[0].Count)
	assert.InDelta(t, 0.6, agg[0].AvgImpact, 0.001)
	assert.InDelta(t, 0.7, agg[0].MaxImpact, 0.001)
}
