package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"feedback-insights-go/internal/logger"
)

const (
	windowSeconds     = 60
	baseBackoff       = 1.0 // seconds
	maxBackoff        = 60.0
	backoffMultiplier = 2.0

	// Character-count token heuristic plus fixed prompt overhead.
	charsPerToken        = 4
	promptOverheadTokens = 800
	avgTokensPerComment  = 150
)

// Limits carries the external budget the limiter enforces.
type Limits struct {
	RequestsPerMinute   int
	TokensPerMinute     int
	MaxTokensPerRequest int
	MaxBatchSize        int
}

// usageWindow is the rolling 60-second accounting record.
type usageWindow struct {
	start    time.Time
	requests int
	tokens   int
}

// UsageStats is a point-in-time snapshot of the current window.
type UsageStats struct {
	RequestsUsed           int     `json:"requests_used"`
	RequestsLimit          int     `json:"requests_limit"`
	RequestsPercentage     float64 `json:"requests_percentage"`
	TokensUsed             int     `json:"tokens_used"`
	TokensLimit            int     `json:"tokens_limit"`
	TokensPercentage       float64 `json:"tokens_percentage"`
	WindowRemainingSeconds float64 `json:"window_remaining_seconds"`
	ConsecutiveRateLimits  int     `json:"consecutive_rate_limits"`
}

// Limiter tracks per-minute request/token usage and computes backoff after
// externally reported 429s. It is an owned handle, not a singleton: workers
// share one instance by pointer and the mutex serializes every admission
// decision.
type Limiter struct {
	mu              sync.Mutex
	limits          Limits
	window          usageWindow
	consecutive429s int

	now func() time.Time // swapped in tests
}

func New(limits Limits) *Limiter {
	l := &Limiter{limits: limits, now: time.Now}
	l.window.start = l.now()
	return l
}

// EstimateTokens approximates the token count of a text at ~4 chars/token.
func EstimateTokens(text string) int {
	n := len(text) / charsPerToken
	if n < 1 {
		return 1
	}
	return n
}

// BatchTokens estimates the full cost of sending a batch: prompt overhead,
// every comment, plus ~50% of the input again for the response.
func BatchTokens(comments []string) int {
	total := promptOverheadTokens
	for _, c := range comments {
		total += EstimateTokens(c)
	}
	return total + total/2
}

// CanAdmit reports whether a request of the given estimated size fits the
// current window. The reason string explains a refusal; a batch exceeding
// the per-request cap must be shrunk, not retried as-is.
func (l *Limiter) CanAdmit(estimatedTokens int) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	if l.window.requests >= l.limits.RequestsPerMinute {
		return false, "request limit exceeded"
	}
	if l.window.tokens+estimatedTokens > l.limits.TokensPerMinute {
		return false, "token limit would be exceeded"
	}
	if estimatedTokens > l.limits.MaxTokensPerRequest {
		return false, "batch exceeds per-request token cap"
	}
	return true, "ok"
}

// Record books a completed request against the window and clears the
// consecutive-429 counter. Call only after a true success.
func (l *Limiter) Record(tokensUsed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()
	l.window.requests++
	l.window.tokens += tokensUsed
	l.consecutive429s = 0
}

// RecordRateLimitError notes an external 429 and returns how long to back
// off: base * multiplier^consecutive, capped.
func (l *Limiter) RecordRateLimitError() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutive429s++
	seconds := math.Min(baseBackoff*math.Pow(backoffMultiplier, float64(l.consecutive429s)), maxBackoff)
	logger.New().WithField("component", "ratelimit").
		WithField("consecutive_429s", l.consecutive429s).
		WithField("backoff_seconds", seconds).
		Warn("rate limit reported, backing off")
	return time.Duration(seconds * float64(time.Second))
}

// Wait blocks until the window can admit the request or ctx is done. It
// wakes at window rollover rather than polling.
func (l *Limiter) Wait(ctx context.Context, estimatedTokens int) error {
	for {
		ok, _ := l.CanAdmit(estimatedTokens)
		if ok {
			return nil
		}
		l.mu.Lock()
		remaining := time.Duration(windowSeconds)*time.Second - l.now().Sub(l.window.start)
		l.mu.Unlock()
		if remaining < time.Second {
			remaining = time.Second
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RecommendedBatchSize shrinks the batch as the remaining window budget
// drops below 20%, and hard-caps it when few requests remain.
func (l *Limiter) RecommendedBatchSize(avgCommentTokens int) int {
	if avgCommentTokens <= 0 {
		avgCommentTokens = avgTokensPerComment
	}
	available := l.limits.MaxTokensPerRequest - promptOverheadTokens
	maxByTokens := available / avgCommentTokens

	l.mu.Lock()
	remainingTokens := l.limits.TokensPerMinute
	remainingRequests := l.limits.RequestsPerMinute
	if !l.expiredLocked() {
		remainingTokens -= l.window.tokens
		remainingRequests -= l.window.requests
	}
	l.mu.Unlock()

	if remainingTokens < l.limits.TokensPerMinute/5 {
		if shrunk := remainingTokens / (avgCommentTokens * 2); shrunk < maxByTokens {
			maxByTokens = shrunk
		}
	}
	if remainingRequests < 5 && maxByTokens > 10 {
		maxByTokens = 10
	}
	if maxByTokens > l.limits.MaxBatchSize {
		maxByTokens = l.limits.MaxBatchSize
	}
	if maxByTokens < 1 {
		return 1
	}
	return maxByTokens
}

// UsageStats snapshots the current window for status reporting.
func (l *Limiter) UsageStats() UsageStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.expiredLocked() {
		return UsageStats{
			RequestsLimit:          l.limits.RequestsPerMinute,
			TokensLimit:            l.limits.TokensPerMinute,
			WindowRemainingSeconds: windowSeconds,
			ConsecutiveRateLimits:  l.consecutive429s,
		}
	}
	remaining := windowSeconds - l.now().Sub(l.window.start).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return UsageStats{
		RequestsUsed:           l.window.requests,
		RequestsLimit:          l.limits.RequestsPerMinute,
		RequestsPercentage:     float64(l.window.requests) / float64(l.limits.RequestsPerMinute) * 100,
		TokensUsed:             l.window.tokens,
		TokensLimit:            l.limits.TokensPerMinute,
		TokensPercentage:       float64(l.window.tokens) / float64(l.limits.TokensPerMinute) * 100,
		WindowRemainingSeconds: remaining,
		ConsecutiveRateLimits:  l.consecutive429s,
	}
}

func (l *Limiter) expiredLocked() bool {
	return l.now().Sub(l.window.start) > windowSeconds*time.Second
}

// rolloverLocked resets an expired window. Callers hold the mutex.
func (l *Limiter) rolloverLocked() {
	if l.expiredLocked() {
		l.window = usageWindow{start: l.now()}
	}
}
