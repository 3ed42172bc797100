package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/types"
)

// ParseError describes why a response could not be turned into records. It
// is consumed locally by callers substituting fallback records and never
// propagates past the pipeline boundary.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("response parse failed: %s", e.Reason)
}

// ParseOutcome is the explicit result of a parse attempt: either records
// were recovered or Failure explains why none could be.
type ParseOutcome struct {
	Records []types.AnalysisRecord
	Failure *ParseError
}

func (o ParseOutcome) Parsed() bool { return o.Failure == nil }

// wireRecord mirrors one object of the scoring service's JSON array.
// Unknown emotion names and malformed values are tolerated field by field.
type wireRecord struct {
	Emotions    types.EmotionScores `json:"emotions"`
	PainPoints  json.RawMessage     `json:"pain_points"`
	ChurnRisk   json.RawMessage     `json:"churn_risk"`
	Sentiment   string              `json:"sentiment"`
	NPSCategory string              `json:"nps_category"`
}

// FallbackRecords synthesizes n zeroed records marked fallback=true. Pure;
// callers invoke it explicitly when an outcome reports failure.
func FallbackRecords(n int) []types.AnalysisRecord {
	records := make([]types.AnalysisRecord, n)
	for i := range records {
		records[i] = types.AnalysisRecord{
			PainPoints: []string{},
			Sentiment:  types.SentimentNeutral,
			Fallback:   true,
		}
	}
	return records
}

// TryParse attempts to recover an array of analysis records from raw
// service output. It never panics and never returns more or fewer than
// expectedCount records on success: longer arrays are truncated, shorter
// ones padded with fallbacks.
func TryParse(raw string, expectedCount int) ParseOutcome {
	log := logger.New().WithField("component", "parser")

	arr, reason := extractArray(raw)
	if reason != "" {
		log.WithField("reason", reason).Warn("no JSON array recovered from response")
		return ParseOutcome{Failure: &ParseError{Reason: reason}}
	}

	if len(arr) != expectedCount {
		log.WithField("expected", expectedCount).
			WithField("got", len(arr)).
			Warn("record count mismatch, repairing")
	}
	records := make([]types.AnalysisRecord, 0, expectedCount)
	for i := 0; i < expectedCount && i < len(arr); i++ {
		records = append(records, sanitizeRecord(arr[i]))
	}
	if missing := expectedCount - len(records); missing > 0 {
		records = append(records, FallbackRecords(missing)...)
	}
	return ParseOutcome{Records: records}
}

// Parse always yields exactly expectedCount records, substituting a full
// fallback set on total failure.
func Parse(raw string, expectedCount int) []types.AnalysisRecord {
	outcome := TryParse(raw, expectedCount)
	if !outcome.Parsed() {
		return FallbackRecords(expectedCount)
	}
	return outcome.Records
}

// extractArray tries, in order: direct parse, markdown fence stripping,
// then the substring between the first '[' and last ']'.
func extractArray(raw string) ([]wireRecord, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, "empty response"
	}

	var arr []wireRecord
	if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
		return arr, ""
	}

	defenced := stripFences(trimmed)
	if err := json.Unmarshal([]byte(defenced), &arr); err == nil {
		return arr, ""
	}

	start := strings.Index(defenced, "[")
	end := strings.LastIndex(defenced, "]")
	if start < 0 || end <= start {
		return nil, "no JSON array found"
	}
	if err := json.Unmarshal([]byte(defenced[start:end+1]), &arr); err != nil {
		return nil, fmt.Sprintf("array substring invalid: %v", err)
	}
	return arr, ""
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// sanitizeRecord clamps every field into its contract: emotions to [0,1]
// (already handled by EmotionScores unmarshalling), churn_risk to [0,1],
// non-list pain_points to empty, unknown sentiment to neutral.
func sanitizeRecord(w wireRecord) types.AnalysisRecord {
	rec := types.AnalysisRecord{
		Emotions:   w.Emotions,
		PainPoints: parsePainPoints(w.PainPoints),
		ChurnRisk:  parseChurn(w.ChurnRisk),
		Sentiment:  parseSentiment(w.Sentiment, w.NPSCategory),
	}
	rec.Emotions.Clamp()
	return rec
}

func parsePainPoints(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func parseChurn(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		// Some models quote numbers.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &v); err != nil {
			return 0
		}
	}
	if v < 0 || v != v { // NaN guards to 0
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseSentiment(sentiment, npsCategory string) types.Sentiment {
	switch strings.ToLower(strings.TrimSpace(sentiment)) {
	case "positive", "positivo":
		return types.SentimentPositive
	case "negative", "negativo":
		return types.SentimentNegative
	case "neutral":
		return types.SentimentNeutral
	}
	// Some responses carry nps_category instead of sentiment.
	switch strings.ToLower(strings.TrimSpace(npsCategory)) {
	case "promoter", "promotor":
		return types.SentimentPositive
	case "detractor":
		return types.SentimentNegative
	}
	return types.SentimentNeutral
}
