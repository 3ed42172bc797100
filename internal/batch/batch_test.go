package batch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-insights-go/internal/types"
)

func comments(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("comentario numero %d sobre el servicio", i)
	}
	return out
}

func TestSplitPreservesOrder(t *testing.T) {
	p := New(30, 12000, types.LangES)
	batches := p.Split(comments(35))
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 30)
	assert.Len(t, batches[1], 5)
	assert.Equal(t, "comentario numero 0 sobre el servicio", batches[0][0])
	assert.Equal(t, "comentario numero 34 sobre el servicio", batches[1][4])
}

func TestSplitEmpty(t *testing.T) {
	p := New(30, 12000, types.LangES)
	assert.Nil(t, p.Split(nil))
}

func TestPrepareBuildsMessages(t *testing.T) {
	p := New(30, 12000, types.LangES)
	prep := p.Prepare(comments(3))

	require.Len(t, prep.Messages, 2)
	assert.Equal(t, "system", prep.Messages[0].Role)
	assert.Equal(t, "user", prep.Messages[1].Role)
	assert.Equal(t, 3, prep.CommentCount)
	assert.Contains(t, prep.Messages[1].Content, "1. comentario numero 0")
	assert.Contains(t, prep.Messages[1].Content, "exactamente 3 objetos")
	assert.Greater(t, prep.EstimatedTokens, 0)
}

func TestPrepareShrinksOversizedBatch(t *testing.T) {
	p := New(30, 1200, types.LangES)
	long := make([]string, 30)
	for i := range long {
		long[i] = strings.Repeat("queja larga sobre demoras ", 20)
	}
	prep := p.Prepare(long)
	assert.Less(t, prep.CommentCount, 30)
	assert.GreaterOrEqual(t, prep.CommentCount, 1)
	if prep.CommentCount > 1 {
		assert.LessOrEqual(t, prep.EstimatedTokens, 1200)
	}
}

func TestPrepareTruncatesToMaxSize(t *testing.T) {
	p := New(10, 120000, types.LangES)
	prep := p.Prepare(comments(25))
	assert.Equal(t, 10, prep.CommentCount)
}

func TestProcessResponseFallsBackOnGarbage(t *testing.T) {
	p := New(30, 12000, types.LangES)
	records := p.ProcessResponse("respuesta sin json", 4)
	require.Len(t, records, 4)
	for _, rec := range records {
		assert.True(t, rec.Fallback)
	}
}

func TestProcessResponseParsesValidArray(t *testing.T) {
	p := New(30, 12000, types.LangES)
	raw := `[{"sentiment":"negative","churn_risk":0.9},{"sentiment":"positive","churn_risk":0.1}]`
	records := p.ProcessResponse(raw, 2)
	require.Len(t, records, 2)
	assert.Equal(t, types.SentimentNegative, records[0].Sentiment)
	assert.False(t, records[0].Fallback)
}

func TestSystemPromptFallback(t *testing.T) {
	assert.Equal(t, SystemPrompt(types.LangES), SystemPrompt(types.Language("fr")))
	assert.NotEqual(t, SystemPrompt(types.LangES), SystemPrompt(types.LangEN))
}
