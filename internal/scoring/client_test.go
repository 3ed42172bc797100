package scoring

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/ratelimit"
)

func testClient() (*Client, *time.Duration) {
	limiter := ratelimit.New(ratelimit.Limits{
		RequestsPerMinute:   450,
		TokensPerMinute:     200000,
		MaxTokensPerRequest: 12000,
		MaxBatchSize:        30,
	})
	c := NewClient("test-key", "gpt-4o-mini", 4000, limiter)
	slept := new(time.Duration)
	c.sleep = func(_ context.Context, d time.Duration) error {
		*slept = d
		return nil
	}
	return c, slept
}

func apiError(status int) *openai.Error {
	return &openai.Error{
		StatusCode: status,
		Request:    httptest.NewRequest("POST", "https://api.openai.com/v1/chat/completions", nil),
	}
}

func TestClassifyRateLimitWaitsAndStaysRetryable(t *testing.T) {
	c, slept := testClient()
	log := logger.New().WithField("component", "scoring")

	err := c.classifyCallError(context.Background(), log, apiError(429))
	require.Error(t, err)
	var perm *backoff.PermanentError
	assert.False(t, errors.As(err, &perm), "429 must stay retryable")
	assert.Equal(t, 2*time.Second, *slept, "first 429 blocks out the limiter backoff")
}

func TestClassifyServerErrorRetriesWithoutBackoffWait(t *testing.T) {
	c, slept := testClient()
	log := logger.New().WithField("component", "scoring")

	err := c.classifyCallError(context.Background(), log, apiError(503))
	require.Error(t, err)
	var perm *backoff.PermanentError
	assert.False(t, errors.As(err, &perm))
	assert.Zero(t, *slept, "only 429s feed the limiter backoff")
}

func TestClassifyClientErrorIsPermanent(t *testing.T) {
	c, _ := testClient()
	log := logger.New().WithField("component", "scoring")

	err := c.classifyCallError(context.Background(), log, apiError(400))
	var perm *backoff.PermanentError
	assert.True(t, errors.As(err, &perm))
}

func TestClassifyRateLimitHonorsCancellation(t *testing.T) {
	c, _ := testClient()
	c.sleep = sleepContext
	log := logger.New().WithField("component", "scoring")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.classifyCallError(ctx, log, apiError(429))
	var perm *backoff.PermanentError
	require.True(t, errors.As(err, &perm), "a cancelled run stops retrying")
	assert.ErrorIs(t, err, context.Canceled)
}
