package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"feedback-insights-go/internal/batch"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/ratelimit"
)

// ServiceError classifies a failed call. Transient errors were retried up
// to the retry budget before surfacing; a surfaced ServiceError means the
// batch degrades to fallback records, it never aborts the run.
type ServiceError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *ServiceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("scoring %s: %s error: %v", e.Op, kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Response is the raw text the service produced plus the booked token cost.
type Response struct {
	Content    string
	TokensUsed int
}

// Scorer sends one prepared request to the scoring service.
type Scorer interface {
	Score(ctx context.Context, messages []batch.Message) (Response, error)
}

// Client calls the OpenAI chat-completions API with exponential backoff and
// jitter. Usage is recorded on the shared limiter only after a true success.
type Client struct {
	api        openai.Client
	model      string
	maxTokens  int
	limiter    *ratelimit.Limiter
	maxElapsed time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(apiKey, model string, maxTokens int, limiter *ratelimit.Limiter) *Client {
	return &Client{
		api:        openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		maxTokens:  maxTokens,
		limiter:    limiter,
		maxElapsed: 2 * time.Minute,
		sleep:      sleepContext,
	}
}

// Score performs the call, retrying transient failures. A 429 additionally
// feeds the limiter's consecutive-429 backoff so concurrent workers slow
// down together.
func (c *Client) Score(ctx context.Context, messages []batch.Message) (Response, error) {
	log := logger.New().WithField("component", "scoring")

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
		Temperature: openai.Float(0.1),
	}

	var out Response
	attempt := 0
	operation := func() error {
		attempt++
		attemptLog := log.WithField("attempt", attempt)

		resp, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			return c.classifyCallError(ctx, attemptLog, err)
		}
		if len(resp.Choices) == 0 {
			attemptLog.Warn("response carried no choices")
			return errors.New("empty choices in response")
		}
		out = Response{
			Content:    resp.Choices[0].Message.Content,
			TokensUsed: int(resp.Usage.TotalTokens),
		}
		attemptLog.WithField("tokens_used", out.TokensUsed).Info("scoring call succeeded")
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		transient := isRateLimit(err) || isTransient(err) || errors.Is(err, context.DeadlineExceeded)
		return Response{}, &ServiceError{Op: "chat completion", Transient: transient, Err: err}
	}

	c.limiter.Record(out.TokensUsed)
	return out, nil
}

// classifyCallError maps a failed call to a retry decision. A 429 feeds the
// limiter's consecutive-429 backoff and blocks out the returned wait before
// the next attempt; 5xx and network errors retry on the policy schedule;
// anything else is permanent.
func (c *Client) classifyCallError(ctx context.Context, log *logrus.Entry, err error) error {
	switch {
	case isRateLimit(err):
		wait := c.limiter.RecordRateLimitError()
		log.WithError(err).WithField("backoff", wait.String()).Warn("rate limited")
		if serr := c.sleep(ctx, wait); serr != nil {
			return backoff.Permanent(serr)
		}
		return err
	case isTransient(err):
		log.WithError(err).Warn("transient service error, will retry")
		return err
	default:
		log.WithError(err).Error("permanent service error")
		return backoff.Permanent(err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toOpenAIMessages(messages []batch.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func isRateLimit(err error) bool {
	var apierr *openai.Error
	return errors.As(err, &apierr) && apierr.StatusCode == 429
}

func isTransient(err error) bool {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode >= 500
	}
	// Network-level failures without an API status are worth retrying.
	return !errors.Is(err, context.Canceled)
}
