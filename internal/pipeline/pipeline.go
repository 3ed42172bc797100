package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"feedback-insights-go/internal/batch"
	"feedback-insights-go/internal/cleaner"
	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/normalizer"
	"feedback-insights-go/internal/ratelimit"
	"feedback-insights-go/internal/scoring"
	"feedback-insights-go/internal/types"
	"feedback-insights-go/internal/validator"
)

// ProgressFunc receives coarse progress updates in [0,100]. Called from the
// coordinating goroutine only, never concurrently.
type ProgressFunc func(percent int, stage string)

// Pipeline wires the full run: validation, cleaning, normalization, batched
// scoring under the shared rate limiter, and per-row enrichment.
type Pipeline struct {
	cfg       config.Config
	scorer    scoring.Scorer
	limiter   *ratelimit.Limiter
	processor *batch.Processor
	cleaner   *cleaner.Cleaner
	norm      *normalizer.Normalizer
	validator *validator.Validator
	progress  ProgressFunc
}

func New(cfg config.Config, scorer scoring.Scorer, limiter *ratelimit.Limiter) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		scorer:    scorer,
		limiter:   limiter,
		processor: batch.New(cfg.MaxBatchSize, cfg.MaxTokensPerRequest, cfg.DefaultLang),
		cleaner:   cleaner.New(cfg.MaxCommentLength),
		norm:      normalizer.New(cfg.DefaultLang),
		validator: validator.New(cfg.MaxCommentLength, false),
	}
}

// WithProgress installs a progress callback and returns the pipeline.
func (p *Pipeline) WithProgress(fn ProgressFunc) *Pipeline {
	p.progress = fn
	return p
}

// Run executes the full pipeline over a raw table. A critical validation
// failure or an expired run deadline aborts the run with no partial output;
// per-batch service failures degrade to fallback records instead.
func (p *Pipeline) Run(ctx context.Context, table validator.Table) (*Result, error) {
	start := time.Now()
	log := logger.New().WithField("component", "pipeline")

	if p.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RunDeadline)
		defer cancel()
	}

	p.report(2, "validating")
	validated, err := p.validator.Validate(table)
	if err != nil {
		log.WithError(err).Error("table failed validation")
		return nil, err
	}
	inconsistentByRow := make(map[int]bool, len(validated.InconsistentRows))
	for i := range validated.Records {
		if validated.InconsistentRows[i] {
			inconsistentByRow[validated.Records[i].RowID] = true
		}
	}

	p.report(8, "cleaning")
	kept, cleanStats := p.cleaner.CleanRecords(validated.Records)
	log.WithField("input_rows", len(validated.Records)).
		WithField("kept", len(kept)).
		Info("cleaning finished")

	p.report(14, "normalizing")
	texts := make([]string, len(kept))
	for i, k := range kept {
		texts[i] = k.Text
	}
	normalized, normStats, metas := p.norm.NormalizeBatch(texts, p.cfg.DefaultLang)

	p.report(20, "scoring")
	records, runStats := p.dispatch(ctx, normalized)
	// A done context here means the run deadline (or caller cancellation)
	// hit, not a per-batch failure: those leave the context alive.
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.WithError(ctxErr).
			WithField("batches", runStats.Batches).
			Error("run cancelled, discarding partial results")
		return nil, fmt.Errorf("run aborted: %w", ctxErr)
	}

	p.report(92, "enriching")
	rows, err := p.assemble(kept, normalized, metas, records, inconsistentByRow, &runStats)
	if err != nil {
		return nil, err
	}

	runStats.TotalRows = validated.Stats.TotalRows
	runStats.AnalyzedRows = len(rows)
	runStats.Duration = time.Since(start)

	result := &Result{
		Rows:          rows,
		Validation:    validated.Stats,
		Issues:        validated.Issues,
		Cleaning:      cleanStats,
		Normalization: normStats,
		Languages:     normalizer.LanguageDistribution(metas),
		Summary:       runStats,
	}
	result.finishAggregates()

	p.report(100, "done")
	log.WithField("rows", len(rows)).
		WithField("fallback_rows", runStats.FallbackRows).
		WithField("failed_batches", runStats.FailedBatches).
		WithField("duration", runStats.Duration.String()).
		Info("pipeline run finished")
	return result, nil
}

type job struct {
	startIdx int
	prepared batch.Prepared
}

type jobResult struct {
	startIdx int
	records  []types.AnalysisRecord
	failed   bool
}

// dispatch runs prepared batches through a bounded worker pool and merges
// the per-batch records back into original comment order. A batch whose call
// fails, or that can no longer start because the run was cancelled, degrades
// to fallback records; the row count never changes.
func (p *Pipeline) dispatch(ctx context.Context, comments []string) ([]types.AnalysisRecord, RunSummary) {
	var stats RunSummary
	merged := make([]types.AnalysisRecord, len(comments))
	if len(comments) == 0 {
		return merged, stats
	}

	jobs := p.planJobs(comments)
	stats.Batches = len(jobs)

	workers := p.cfg.MaxWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan job)
	resultCh := make(chan jobResult, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				resultCh <- p.runBatch(ctx, j)
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, j := range jobs {
			jobCh <- j
		}
	}()
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	completed := 0
	for res := range resultCh {
		copy(merged[res.startIdx:], res.records)
		if res.failed {
			stats.FailedBatches++
		}
		completed++
		// Scoring spans 20-90% of the run.
		p.report(20+completed*70/len(jobs), "scoring")
	}
	return merged, stats
}

// planJobs chunks the comments into prepared requests. Prepare may shrink a
// chunk below the batch size to fit the token cap; the remainder rolls into
// the next job, so every comment lands in exactly one batch.
func (p *Pipeline) planJobs(comments []string) []job {
	var jobs []job
	for start := 0; start < len(comments); {
		end := start + p.cfg.MaxBatchSize
		if end > len(comments) {
			end = len(comments)
		}
		prep := p.processor.Prepare(comments[start:end])
		jobs = append(jobs, job{startIdx: start, prepared: prep})
		start += prep.CommentCount
	}
	return jobs
}

func (p *Pipeline) runBatch(ctx context.Context, j job) jobResult {
	log := logger.New().WithField("component", "pipeline").
		WithField("batch_start", j.startIdx).
		WithField("batch_size", j.prepared.CommentCount)

	if err := p.limiter.Wait(ctx, j.prepared.EstimatedTokens); err != nil {
		log.WithError(err).Warn("batch cancelled before admission, degrading to fallbacks")
		return jobResult{
			startIdx: j.startIdx,
			records:  fallbackBatch(j.prepared.CommentCount),
			failed:   true,
		}
	}

	resp, err := p.scorer.Score(ctx, j.prepared.Messages)
	if err != nil {
		log.WithError(err).Warn("scoring call failed, degrading to fallbacks")
		return jobResult{
			startIdx: j.startIdx,
			records:  fallbackBatch(j.prepared.CommentCount),
			failed:   true,
		}
	}

	return jobResult{
		startIdx: j.startIdx,
		records:  p.processor.ProcessResponse(resp.Content, j.prepared.CommentCount),
	}
}

func (p *Pipeline) report(percent int, stage string) {
	if p.progress == nil {
		return
	}
	if percent > 100 {
		percent = 100
	}
	p.progress(percent, stage)
}
