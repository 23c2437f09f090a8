// Package embedder converts text into dense vectors for cosine similarity
// search. A remote Provider is tried first; whenever it is missing, slow,
// failing, or returns a payload without a usable vector, the Embedder falls
// back to the deterministic hash-derived vector from Fallback. Embedding
// therefore never fails from the caller's point of view.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/54b3r/interviewly-rag/internal/logging"
)

// DefaultTimeout bounds a single remote embedding call.
const DefaultTimeout = 30 * time.Second

// ErrNoVector is returned by providers whose response held no numeric array.
var ErrNoVector = errors.New("embedder: response contains no numeric array")

// Provider is a remote embedding source. Implementations must be safe to call
// from multiple goroutines and should honour ctx cancellation.
type Provider interface {
	// Embed returns the provider's vector for text.
	Embed(ctx context.Context, text string) ([]float64, error)
	// Name returns a short label for logs and metrics (e.g. "gemini").
	Name() string
}

// Embedder wraps an optional Provider with a per-call timeout, optional
// request pacing, metrics, and the deterministic fallback.
// It is safe for concurrent use.
type Embedder struct {
	// provider is the remote source; nil means fallback-only.
	provider Provider
	// timeout bounds each provider call.
	timeout time.Duration
	// limiter paces provider calls; nil means unlimited.
	limiter *rate.Limiter
	// log overrides the context logger when set.
	log *slog.Logger
	// metrics records call outcomes and latency.
	metrics *embedderMetrics
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithTimeout sets the per-call provider timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Embedder) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRateLimit paces provider calls to rps requests per second with the given
// burst. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Embedder) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for fallback warnings. Without it the
// logger carried by the call context is used.
func WithLogger(log *slog.Logger) Option {
	return func(e *Embedder) { e.log = log }
}

// WithMetrics registers the embedder metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Embedder) { e.metrics = newEmbedderMetrics(reg) }
}

// New constructs an Embedder. provider may be nil, in which case every call
// returns the fallback vector.
func New(provider Provider, opts ...Option) *Embedder {
	e := &Embedder{
		provider: provider,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = newEmbedderMetrics(nil)
	}
	return e
}

// ProviderName returns the configured provider label, or "fallback" when no
// provider is configured.
func (e *Embedder) ProviderName() string {
	if e.provider == nil {
		return "fallback"
	}
	return e.provider.Name()
}

// Embed returns a vector for text. It never fails: any provider problem is
// logged as a warning and answered with Fallback(text).
func (e *Embedder) Embed(ctx context.Context, text string) []float64 {
	if e.provider == nil {
		return Fallback(text)
	}

	name := e.provider.Name()
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(callCtx); err != nil {
			return e.fallback(ctx, text, "rate limit wait", err)
		}
	}

	start := time.Now()
	vec, err := e.provider.Embed(callCtx, text)
	e.metrics.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return e.fallback(ctx, text, "provider error", err)
	}
	if err := checkVector(vec); err != nil {
		return e.fallback(ctx, text, "invalid vector", err)
	}

	e.metrics.requests.WithLabelValues(name, outcomeOK).Inc()
	return vec
}

// EmbedStrings embeds each text in order. It satisfies the eino
// embedding.Embedder interface so the engine's embedder can be plugged into
// eino retrievers and indexers; the error is always nil.
func (e *Embedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.Embed(ctx, text)
	}
	return out, nil
}

// fallback logs why the provider result was discarded and returns the
// deterministic vector.
func (e *Embedder) fallback(ctx context.Context, text, reason string, err error) []float64 {
	name := e.provider.Name()
	e.metrics.requests.WithLabelValues(name, outcomeFallback).Inc()

	log := e.log
	if log == nil {
		log = logging.FromContext(ctx)
	}
	log.Warn("embedder: remote embedding failed, using fallback embedding",
		slog.String("provider", name),
		slog.String("reason", reason),
		slog.Int("text_len", len(text)),
		slog.Any("error", err),
	)
	return Fallback(text)
}

// checkVector rejects empty vectors and vectors with non-finite components.
func checkVector(vec []float64) error {
	if len(vec) == 0 {
		return errors.New("empty vector")
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("component %d is not finite", i)
		}
	}
	return nil
}

// compile-time check that Embedder plugs into eino.
var _ embedding.Embedder = (*Embedder)(nil)
