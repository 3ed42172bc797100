package types

// Language codes supported by the normalizer.
type Language string

const (
	LangES Language = "es"
	LangEN Language = "en"
	LangGN Language = "gn"
)

// Sentiment is the coarse polarity assigned to a comment.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// NPSCategory is the satisfaction bucket derived from a 0-10 score.
type NPSCategory string

const (
	NPSDetractor NPSCategory = "detractor"
	NPSPassive   NPSCategory = "passive"
	NPSPromoter  NPSCategory = "promoter"
	NPSUnknown   NPSCategory = "unknown"
)

// CategoryForScore maps a 0-10 satisfaction score to its NPS bucket.
func CategoryForScore(score float64) NPSCategory {
	switch {
	case score < 0 || score > 10:
		return NPSUnknown
	case score <= 6:
		return NPSDetractor
	case score <= 8:
		return NPSPassive
	default:
		return NPSPromoter
	}
}

// RiskLevel buckets a fused churn risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// CommentRecord is one raw ingested feedback row. It is never mutated after
// ingestion; later stages copy forward into new structs.
type CommentRecord struct {
	RowID    int     `json:"row_id"`
	RawText  string  `json:"raw_text"`
	Score    float64 `json:"satisfaction_score"`
	HasScore bool    `json:"has_score"`

	// Optional passthrough columns, kept untouched for the output table.
	Date       string `json:"fecha,omitempty"`
	Category   string `json:"categoria,omitempty"`
	Channel    string `json:"canal,omitempty"`
	CustomerID string `json:"cliente_id,omitempty"`
}

// CleanedComment is a comment that survived cleaning and normalization.
type CleanedComment struct {
	RowID    int      `json:"row_id"`
	Text     string   `json:"text"`
	Language Language `json:"language"`
}

// PainPoint is one structured problem extracted from a comment.
type PainPoint struct {
	Description string  `json:"descripcion"`
	Category    string  `json:"categoria"`
	Severity    string  `json:"severidad"`
	Impact      float64 `json:"impact_score"`
}

// AnalysisRecord is the per-comment result returned by the scoring service
// after parsing and repair. Fallback marks records synthesized when the
// response for a comment could not be recovered.
type AnalysisRecord struct {
	Emotions   EmotionScores `json:"emotions"`
	PainPoints []string      `json:"pain_points"`
	ChurnRisk  float64       `json:"churn_risk"`
	Sentiment  Sentiment     `json:"sentiment"`
	Fallback   bool          `json:"fallback"`
}

// EmotionSummary carries the derived emotion metrics for one comment.
type EmotionSummary struct {
	Intensity float64   `json:"intensity"`
	Dominant  Emotion   `json:"dominant_emotion"`
	Valence   Sentiment `json:"valence"`
	Balance   float64   `json:"emotional_balance"`
}

// ChurnAnalysis is the fused churn assessment for one comment. Computed
// once, never mutated.
type ChurnAnalysis struct {
	ChurnRisk      float64            `json:"churn_risk"`
	Level          RiskLevel          `json:"risk_level"`
	Factors        map[string]float64 `json:"contributing_factors"`
	Indicators     []string           `json:"indicators"`
	Confidence     float64            `json:"confidence"`
	Recommendation string             `json:"recommendation"`
}

// InferredScore is the output of NPS inference for a row whose original
// satisfaction score was missing or out of range.
type InferredScore struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Inferred   bool    `json:"inferred"`
}

// EnrichedRow is the pipeline's only externally visible artifact: the join
// of a cleaned comment, its analysis record, churn assessment, pain-point
// detail and NPS category.
type EnrichedRow struct {
	CleanedComment
	Analysis AnalysisRecord `json:"analysis"`
	Emotion  EmotionSummary `json:"emotion_summary"`
	Churn    ChurnAnalysis  `json:"churn_analysis"`

	PainPoints []PainPoint `json:"pain_points"`

	Score           float64     `json:"satisfaction_score"`
	ScoreSource     string      `json:"score_source"` // "original" or "inferred"
	ScoreConfidence float64     `json:"score_confidence"`
	NPSCategory     NPSCategory `json:"nps_category"`

	Date       string `json:"fecha,omitempty"`
	CategoryIn string `json:"categoria,omitempty"`
	Channel    string `json:"canal,omitempty"`
	CustomerID string `json:"cliente_id,omitempty"`
}
