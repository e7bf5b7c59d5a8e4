package llm

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mattgly/sage/internal/config"
	"github.com/mattgly/sage/internal/conversation"
	"github.com/mattgly/sage/internal/errors"
	"github.com/mattgly/sage/internal/logging"
)

// TokenEstimator estimates token counts for rate limiting
type TokenEstimator struct{}

// NewTokenEstimator creates a new token estimator
func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{}
}

// EstimateText estimates the number of tokens in a string.
// Uses a rough approximation: chars/4 + 20% buffer.
func (e *TokenEstimator) EstimateText(text string) int {
	baseEstimate := len(text) / 4
	return int(float64(baseEstimate) * 1.2)
}

// EstimateRequest estimates tokens for a full request.
func (e *TokenEstimator) EstimateRequest(req Request) int {
	total := e.EstimateText(req.System)
	for _, turn := range req.Turns {
		// Overhead for message structure (~4 tokens per turn)
		total += 4
		for _, b := range turn.Blocks {
			switch b.Kind {
			case conversation.KindText:
				total += e.EstimateText(b.Text)
			case conversation.KindToolUse:
				total += e.EstimateText(string(b.RawInput))
			case conversation.KindToolResult:
				total += e.EstimateText(b.Content)
			}
		}
	}
	// Overhead for tool definitions (~100 tokens per tool)
	total += len(req.Tools) * 100
	return total
}

// RateLimitedBackend wraps a Backend with a proactive token bucket and
// exponential-backoff retries on 429 responses.
type RateLimitedBackend struct {
	inner     Backend
	limiter   *rate.Limiter
	burst     int
	estimator *TokenEstimator
	cfg       *config.RateLimitConfig
}

// NewRateLimitedBackend creates a rate-limited wrapper around inner.
func NewRateLimitedBackend(inner Backend, cfg *config.RateLimitConfig) *RateLimitedBackend {
	tokensPerSecond := float64(cfg.TokensPerMinute) / 60.0
	// Burst allows roughly ten seconds of budget up front.
	burst := cfg.TokensPerMinute / 6
	if burst < 1000 {
		burst = 1000
	}

	return &RateLimitedBackend{
		inner:     inner,
		limiter:   rate.NewLimiter(rate.Limit(tokensPerSecond), burst),
		burst:     burst,
		estimator: NewTokenEstimator(),
		cfg:       cfg,
	}
}

// Stream waits for token budget, then streams from the inner backend,
// retrying the whole turn on rate-limit errors. Retrying mid-turn is never
// attempted: a failed stream is discarded and restarted from the turn
// boundary.
func (b *RateLimitedBackend) Stream(ctx context.Context, req Request) <-chan StreamEvent {
	ch := make(chan StreamEvent, 100)

	go func() {
		defer close(ch)

		log := logging.Global().WithPrefix("llm")

		estimated := b.estimator.EstimateRequest(req)
		log.Debug("rate limit: estimated request tokens", logging.Count(estimated))

		if err := b.wait(ctx, estimated); err != nil {
			ch <- StreamEvent{Type: EventProtocolError, Err: err}
			return
		}

		var lastErr error
		for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
			if attempt > 0 {
				delay := b.backoff(attempt)
				log.Debug("rate limit: retrying stream", logging.Count(attempt), logging.Duration(delay))
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					ch <- StreamEvent{Type: EventProtocolError, Err: ctx.Err()}
					return
				}
			}

			rateLimited := false
			forwarded := 0
			for ev := range b.inner.Stream(ctx, req) {
				// A 429 is only retryable from a clean turn boundary. Once
				// events have been forwarded, replaying the turn would hand
				// the consumer a duplicate turn_start.
				if ev.Type == EventProtocolError && isRateLimitError(ev.Err) && forwarded == 0 {
					lastErr = ev.Err
					rateLimited = true
					log.Warn("rate limit hit on stream", logging.Count(attempt+1), logging.Error(ev.Err))
					break
				}
				ch <- ev
				forwarded++
				if ev.Type == EventProtocolError {
					return
				}
			}

			if !rateLimited {
				return
			}
		}

		if lastErr != nil {
			ch <- StreamEvent{Type: EventProtocolError, Err: lastErr}
		}
	}()

	return ch
}

// Close closes the inner backend.
func (b *RateLimitedBackend) Close() error {
	return b.inner.Close()
}

// wait blocks until the estimated token budget is available. A request
// bigger than the bucket itself is capped at the burst size: reserving more
// than the burst can never succeed, while draining the full bucket and
// proceeding keeps the long-run rate intact because the bucket refills
// continuously.
func (b *RateLimitedBackend) wait(ctx context.Context, tokens int) error {
	if tokens > b.burst {
		logging.Global().Debug("rate limit: estimate exceeds burst, capping",
			logging.Count(tokens), logging.F("burst", b.burst))
		tokens = b.burst
	}

	reservation := b.limiter.ReserveN(time.Now(), tokens)
	if !reservation.OK() {
		reservation.Cancel()
		return errors.BackendUnavailable(fmt.Errorf("rate limiter cannot reserve %d tokens", tokens))
	}

	delay := reservation.Delay()
	if delay > 0 {
		logging.Global().Debug("rate limit: waiting for budget", logging.Duration(delay), logging.Count(tokens))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			reservation.Cancel()
			return ctx.Err()
		}
	}
	return nil
}

// backoff calculates the delay for a retry attempt.
// Exponential with 0-25% jitter, capped at MaxDelay.
func (b *RateLimitedBackend) backoff(attempt int) time.Duration {
	d := float64(b.cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	d += d * 0.25 * rand.Float64()
	if d > float64(b.cfg.MaxDelay) {
		d = float64(b.cfg.MaxDelay)
	}
	return time.Duration(d)
}

// isRateLimitError checks if an error is a rate limit (429) error
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "Too Many Requests")
}
