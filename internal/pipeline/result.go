package pipeline

import (
	"fmt"
	"time"

	"feedback-insights-go/internal/analysis"
	"feedback-insights-go/internal/cleaner"
	"feedback-insights-go/internal/normalizer"
	"feedback-insights-go/internal/parser"
	"feedback-insights-go/internal/types"
	"feedback-insights-go/internal/validator"
)

// CountMismatchError reports a broken positional invariant: the number of
// analysis records diverged from the number of dispatched comments.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("positional merge broken: %d analysis records for %d comments", e.Got, e.Expected)
}

// RunSummary is the bookkeeping of one pipeline run.
type RunSummary struct {
	TotalRows      int           `json:"total_rows"`
	AnalyzedRows   int           `json:"analyzed_rows"`
	FallbackRows   int           `json:"fallback_rows"`
	Batches        int           `json:"batches"`
	FailedBatches  int           `json:"failed_batches"`
	InferredScores int           `json:"inferred_scores"`
	Duration       time.Duration `json:"duration"`
}

// Result is everything a run produces: enriched rows in original order plus
// per-stage statistics and dataset-level aggregates.
type Result struct {
	Rows []types.EnrichedRow `json:"rows"`

	Validation    validator.Stats            `json:"validation"`
	Issues        []validator.Issue          `json:"issues,omitempty"`
	Cleaning      cleaner.Stats              `json:"cleaning"`
	Normalization normalizer.Stats           `json:"normalization"`
	Languages     map[types.Language]int     `json:"languages"`
	NPS           analysis.NPSSummary        `json:"nps"`
	PainPoints    []analysis.CategorySummary `json:"pain_point_summary"`
	Summary       RunSummary                 `json:"summary"`
}

// assemble joins cleaned rows with their analysis records positionally and
// runs the enrichment engines over each pair.
func (p *Pipeline) assemble(
	kept []cleaner.Kept,
	normalized []string,
	metas []normalizer.Metadata,
	records []types.AnalysisRecord,
	inconsistentByRow map[int]bool,
	stats *RunSummary,
) ([]types.EnrichedRow, error) {
	if len(records) != len(kept) {
		return nil, &CountMismatchError{Expected: len(kept), Got: len(records)}
	}

	rows := make([]types.EnrichedRow, 0, len(kept))
	for i, k := range kept {
		rec := records[i]
		rec.Emotions.Clamp()
		if rec.Fallback {
			stats.FallbackRows++
		}

		painPoints := analysis.EnrichPainPoints(rec)
		churn := analysis.FuseChurnRisk(analysis.ChurnInput{
			Record:       rec,
			PainPoints:   painPoints,
			Comment:      normalized[i],
			Score:        k.Record.Score,
			HasScore:     k.Record.HasScore,
			Inconsistent: inconsistentByRow[k.Record.RowID],
		})
		// The fused estimate supersedes the raw service churn everywhere
		// downstream, including score inference.
		rec.ChurnRisk = churn.ChurnRisk

		inferred := analysis.InferScore(rec, k.Record.Score, k.Record.HasScore)
		source := "original"
		if inferred.Inferred {
			source = "inferred"
			stats.InferredScores++
		}

		rows = append(rows, types.EnrichedRow{
			CleanedComment: types.CleanedComment{
				RowID:    k.Record.RowID,
				Text:     normalized[i],
				Language: metas[i].DetectedLanguage,
			},
			Analysis:        rec,
			Emotion:         analysis.SummarizeEmotions(rec.Emotions),
			Churn:           churn,
			PainPoints:      painPoints,
			Score:           inferred.Score,
			ScoreSource:     source,
			ScoreConfidence: inferred.Confidence,
			NPSCategory:     types.CategoryForScore(inferred.Score),
			Date:            k.Record.Date,
			CategoryIn:      k.Record.Category,
			Channel:         k.Record.Channel,
			CustomerID:      k.Record.CustomerID,
		})
	}
	return rows, nil
}

// finishAggregates computes the dataset-level rollups from the final rows.
func (r *Result) finishAggregates() {
	scores := make([]types.InferredScore, 0, len(r.Rows))
	pointRows := make([][]types.PainPoint, 0, len(r.Rows))
	for _, row := range r.Rows {
		scores = append(scores, types.InferredScore{
			Score:      row.Score,
			Confidence: row.ScoreConfidence,
			Inferred:   row.ScoreSource == "inferred",
		})
		pointRows = append(pointRows, row.PainPoints)
	}
	r.NPS = analysis.SummarizeNPS(scores)
	r.PainPoints = analysis.AggregatePainPoints(pointRows)
}

func fallbackBatch(n int) []types.AnalysisRecord {
	return parser.FallbackRecords(n)
}
