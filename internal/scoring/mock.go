package scoring

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"feedback-insights-go/internal/batch"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/ratelimit"
	"feedback-insights-go/internal/types"
)

// MockScorer produces deterministic keyword-driven analyses without any
// network access (USE_MOCK_SCORER=true). It answers with the same JSON
// array text a real call would, so the parser path stays exercised.
type MockScorer struct {
	limiter *ratelimit.Limiter
}

func NewMockScorer(limiter *ratelimit.Limiter) *MockScorer {
	return &MockScorer{limiter: limiter}
}

var commentLineRe = regexp.MustCompile(`(?m)^\d+\. (.*)$`)

// Score synthesizes one record per numbered comment found in the user
// prompt and books the estimated tokens like a real success would.
func (m *MockScorer) Score(ctx context.Context, messages []batch.Message) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, &ServiceError{Op: "mock", Transient: false, Err: err}
	}
	comments := extractComments(messages)
	records := make([]map[string]any, 0, len(comments))
	for _, c := range comments {
		records = append(records, mockRecord(c))
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return Response{}, &ServiceError{Op: "mock", Transient: false, Err: err}
	}

	tokens := ratelimit.BatchTokens(comments)
	if m.limiter != nil {
		m.limiter.Record(tokens)
	}
	logger.New().WithField("component", "scoring").
		WithField("mock", true).
		WithField("comments", len(comments)).
		Info("mock scoring call")
	return Response{Content: string(payload), TokensUsed: tokens}, nil
}

func extractComments(messages []batch.Message) []string {
	for _, msg := range messages {
		if msg.Role != "user" {
			continue
		}
		matches := commentLineRe.FindAllStringSubmatch(msg.Content, -1)
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			out = append(out, m[1])
		}
		return out
	}
	return nil
}

func mockRecord(comment string) map[string]any {
	lower := strings.ToLower(comment)
	base := 0.1 + min(0.8, float64(len(comment))/2000)

	emotions := map[string]float64{}
	for e := types.Emotion(0); e < types.NumEmotions; e++ {
		emotions[e.String()] = 0.05
	}
	sentiment := types.SentimentNeutral
	switch {
	case containsAny(lower, "bueno", "excelente", "fantástico", "fantastico", "perfecto"):
		emotions["alegria"] = 0.8
		emotions["confianza"] = 0.6
		emotions["aprecio"] = 0.7
		sentiment = types.SentimentPositive
	case containsAny(lower, "malo", "terrible", "horrible", "pésimo", "pesimo"):
		emotions["enojo"] = 0.7
		emotions["frustracion"] = 0.8
		emotions["desagrado"] = 0.6
		sentiment = types.SentimentNegative
	case containsAny(lower, "triste", "decepcionado", "lamento"):
		emotions["tristeza"] = 0.7
		emotions["decepcion"] = 0.6
		sentiment = types.SentimentNegative
	}

	var painPoints []string
	if containsAny(lower, "lento", "demora") {
		painPoints = append(painPoints, "Lentitud en el servicio")
	}
	if containsAny(lower, "caro", "precio") {
		painPoints = append(painPoints, "Precios elevados")
	}
	if painPoints == nil {
		painPoints = []string{}
	}

	churn := min(1.0, base)
	if containsAny(lower, "cancelar", "dejar", "cambiar", "otro") {
		churn = min(1.0, churn+0.3)
	}

	return map[string]any{
		"emotions":    emotions,
		"pain_points": painPoints,
		"churn_risk":  churn,
		"sentiment":   string(sentiment),
	}
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
