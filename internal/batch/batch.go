package batch

import (
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/parser"
	"feedback-insights-go/internal/ratelimit"
	"feedback-insights-go/internal/types"
)

// outputTokensPerComment is the fixed allowance added per comment for the
// JSON the service writes back.
const outputTokensPerComment = 50

// Message is one chat message of a prepared request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prepared is a dispatch-ready request: the messages, the comments that
// made it in, and the token estimate the rate limiter admits against.
type Prepared struct {
	Messages        []Message
	Comments        []string
	EstimatedTokens int
	CommentCount    int
}

// Processor assembles prompts under the per-request token cap. It never
// touches the network; admission and retry live elsewhere.
type Processor struct {
	maxBatchSize        int
	maxTokensPerRequest int
	lang                types.Language
}

func New(maxBatchSize, maxTokensPerRequest int, lang types.Language) *Processor {
	return &Processor{
		maxBatchSize:        maxBatchSize,
		maxTokensPerRequest: maxTokensPerRequest,
		lang:                lang,
	}
}

// Split chops cleaned comments into max-batch-size groups, preserving order.
func (p *Processor) Split(comments []string) [][]string {
	if len(comments) == 0 {
		return nil
	}
	var batches [][]string
	for start := 0; start < len(comments); start += p.maxBatchSize {
		end := start + p.maxBatchSize
		if end > len(comments) {
			end = len(comments)
		}
		batches = append(batches, comments[start:end])
	}
	return batches
}

// Prepare builds the prompt for a batch, shrinking it iteratively (with a
// 10% safety margin per step) until the token estimate fits the per-request
// cap. Dropped comments are logged, never silently lost; the caller re-queues
// whatever was not included by comparing CommentCount with its input.
func (p *Processor) Prepare(comments []string) Prepared {
	log := logger.New().WithField("component", "batch")

	if len(comments) > p.maxBatchSize {
		log.WithField("size", len(comments)).
			WithField("max", p.maxBatchSize).
			Warn("batch exceeds max size, truncating")
		comments = comments[:p.maxBatchSize]
	}

	system := SystemPrompt(p.lang)
	user := UserPrompt(comments)
	estimated := p.estimate(system, user, len(comments))

	for estimated > p.maxTokensPerRequest && len(comments) > 1 {
		factor := float64(p.maxTokensPerRequest) / float64(estimated)
		newSize := int(float64(len(comments)) * factor * 0.9)
		if newSize < 1 {
			newSize = 1
		}
		if newSize >= len(comments) {
			newSize = len(comments) - 1
		}
		log.WithField("estimated_tokens", estimated).
			WithField("cap", p.maxTokensPerRequest).
			WithField("reduced_to", newSize).
			Warn("token estimate over cap, shrinking batch")
		comments = comments[:newSize]
		user = UserPrompt(comments)
		estimated = p.estimate(system, user, len(comments))
	}

	return Prepared{
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Comments:        comments,
		EstimatedTokens: estimated,
		CommentCount:    len(comments),
	}
}

// ProcessResponse turns raw service output into exactly expectedCount
// analysis records, substituting fallbacks when parsing fails.
func (p *Processor) ProcessResponse(raw string, expectedCount int) []types.AnalysisRecord {
	outcome := parser.TryParse(raw, expectedCount)
	if !outcome.Parsed() {
		logger.New().WithField("component", "batch").
			WithField("reason", outcome.Failure.Reason).
			WithField("count", expectedCount).
			Warn("unparseable response, substituting fallback records")
		return parser.FallbackRecords(expectedCount)
	}
	return outcome.Records
}

func (p *Processor) estimate(system, user string, commentCount int) int {
	prompt := ratelimit.EstimateTokens(system) + ratelimit.EstimateTokens(user)
	return prompt + commentCount*outputTokensPerComment
}
