package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-insights-go/internal/batch"
	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/ratelimit"
	"feedback-insights-go/internal/scoring"
	"feedback-insights-go/internal/types"
	"feedback-insights-go/internal/validator"
)

func testConfig() config.Config {
	return config.Config{
		ModelName:           "gpt-4o-mini",
		UseMockScorer:       true,
		MaxBatchSize:        30,
		MaxTokensPerRequest: 12000,
		MaxWorkers:          4,
		RequestsPerMinute:   450,
		TokensPerMinute:     200000,
		MaxCommentLength:    2000,
		SupportedLangs:      []types.Language{types.LangES, types.LangEN, types.LangGN},
		DefaultLang:         types.LangES,
	}
}

func testLimiter(cfg config.Config) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Limits{
		RequestsPerMinute:   cfg.RequestsPerMinute,
		TokensPerMinute:     cfg.TokensPerMinute,
		MaxTokensPerRequest: cfg.MaxTokensPerRequest,
		MaxBatchSize:        cfg.MaxBatchSize,
	})
}

func feedbackTable(n int) validator.Table {
	table := validator.Table{Columns: []string{"comentario", "nps"}}
	for i := 0; i < n; i++ {
		var comment string
		if i%2 == 0 {
			comment = fmt.Sprintf("servicio excelente opinion numero %d entrega rapida", i)
		} else {
			comment = fmt.Sprintf("servicio terrible opinion numero %d demora enorme", i)
		}
		table.Rows = append(table.Rows, []string{comment, ""})
	}
	return table
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, []batch.Message) (scoring.Response, error) {
	return scoring.Response{}, errors.New("service unavailable")
}

// slowScorer blocks until the run context expires.
type slowScorer struct{}

func (slowScorer) Score(ctx context.Context, _ []batch.Message) (scoring.Response, error) {
	<-ctx.Done()
	return scoring.Response{}, ctx.Err()
}

func TestRunEndToEndWithMockScorer(t *testing.T) {
	cfg := testConfig()
	limiter := testLimiter(cfg)
	p := New(cfg, scoring.NewMockScorer(limiter), limiter)

	var lastPercent int
	p.WithProgress(func(percent int, stage string) {
		assert.GreaterOrEqual(t, percent, lastPercent, "progress never goes backwards")
		lastPercent = percent
	})

	result, err := p.Run(context.Background(), feedbackTable(35))
	require.NoError(t, err)
	require.Len(t, result.Rows, 35)
	assert.Equal(t, 100, lastPercent)

	// 35 comments with a batch cap of 30 dispatch as two batches.
	assert.Equal(t, 2, result.Summary.Batches)
	assert.Zero(t, result.Summary.FailedBatches)
	assert.Zero(t, result.Summary.FallbackRows)
	assert.Equal(t, 35, result.Summary.AnalyzedRows)

	for i, row := range result.Rows {
		assert.Equal(t, i, row.RowID, "rows stay in original order")
		if i%2 == 0 {
			assert.Equal(t, types.SentimentPositive, row.Analysis.Sentiment, "row %d", i)
		} else {
			assert.Equal(t, types.SentimentNegative, row.Analysis.Sentiment, "row %d", i)
		}
		assert.Equal(t, "inferred", row.ScoreSource)
		assert.NotEmpty(t, row.Churn.Recommendation)
	}

	// Negative rows mention demoras, so the pain-point rollup is populated.
	assert.NotEmpty(t, result.PainPoints)
	assert.Equal(t, 35, result.NPS.Scored)
	assert.Equal(t, 35, result.NPS.Inferred)
}

func TestRunDegradesToFallbacksWhenScoringFails(t *testing.T) {
	cfg := testConfig()
	limiter := testLimiter(cfg)
	p := New(cfg, failingScorer{}, limiter)

	result, err := p.Run(context.Background(), feedbackTable(35))
	require.NoError(t, err, "scoring failures degrade, they never abort the run")
	require.Len(t, result.Rows, 35)
	assert.Equal(t, 2, result.Summary.FailedBatches)
	assert.Equal(t, 35, result.Summary.FallbackRows)

	for _, row := range result.Rows {
		assert.True(t, row.Analysis.Fallback)
		assert.Equal(t, types.SentimentNeutral, row.Analysis.Sentiment)
		assert.Equal(t, "inferred", row.ScoreSource)
		assert.Equal(t, 5.0, row.Score)
	}
}

func TestRunFailsWhenDeadlineExpires(t *testing.T) {
	cfg := testConfig()
	cfg.RunDeadline = 50 * time.Millisecond
	limiter := testLimiter(cfg)
	p := New(cfg, slowScorer{}, limiter)

	result, err := p.Run(context.Background(), feedbackTable(5))
	require.Error(t, err)
	assert.Nil(t, result, "an expired run keeps no partial output")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunAbortsOnCriticalValidation(t *testing.T) {
	cfg := testConfig()
	limiter := testLimiter(cfg)
	p := New(cfg, scoring.NewMockScorer(limiter), limiter)

	_, err := p.Run(context.Background(), validator.Table{
		Columns: []string{"fecha"},
		Rows:    [][]string{{"2024-01-01"}},
	})
	require.Error(t, err)
	var verr *validator.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRunPreservesOriginalScores(t *testing.T) {
	cfg := testConfig()
	limiter := testLimiter(cfg)
	p := New(cfg, scoring.NewMockScorer(limiter), limiter)

	table := validator.Table{
		Columns: []string{"comentario", "nps"},
		Rows: [][]string{
			{"servicio excelente recomendado totalmente sin dudas", "9"},
			{"experiencia terrible con demoras constantes cada semana", "2"},
		},
	}
	result, err := p.Run(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, "original", result.Rows[0].ScoreSource)
	assert.Equal(t, 9.0, result.Rows[0].Score)
	assert.Equal(t, types.NPSPromoter, result.Rows[0].NPSCategory)

	assert.Equal(t, "original", result.Rows[1].ScoreSource)
	assert.Equal(t, 2.0, result.Rows[1].Score)
	assert.Equal(t, types.NPSDetractor, result.Rows[1].NPSCategory)

	assert.Greater(t, result.Rows[1].Churn.ChurnRisk, result.Rows[0].Churn.ChurnRisk)
}
