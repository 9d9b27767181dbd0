package biometrics

import (
	"context"
	"errors"
	"time"

	drepo "PulseFeed/internal/domain/repository"
	"PulseFeed/pkg/cache"
	applogger "PulseFeed/pkg/logger"
)

var (
	// ErrNotAuthorized means the biometric read grant was never given.
	ErrNotAuthorized = errors.New("biometrics: read not authorized")
	// ErrNoSamples means the window contained no readings.
	ErrNoSamples = errors.New("biometrics: no samples in window")
)

// Resolver resolves the average biometric value in a symmetric window around
// a point in time. Every failure mode degrades to "absent": enrichment is
// best-effort per record and must never abort the pipeline.
type Resolver struct {
	store    drepo.SampleStore
	auth     drepo.Authorization
	metrics  drepo.Metrics
	cache    cache.Service
	window   time.Duration
	cacheTTL time.Duration
	l        *applogger.Logger
}

// NewResolver creates a window resolver over the given sample store.
// window is the full width; the query spans [t-window/2, t+window/2).
func NewResolver(
	store drepo.SampleStore,
	auth drepo.Authorization,
	metrics drepo.Metrics,
	c cache.Service,
	window, cacheTTL time.Duration,
) *Resolver {
	return &Resolver{
		store:    store,
		auth:     auth,
		metrics:  metrics,
		cache:    c,
		window:   window,
		cacheTTL: cacheTTL,
	}
}

// SetLogger injects a structured logger.
func (r *Resolver) SetLogger(l *applogger.Logger) { r.l = l }

// AverageAround returns the truncated integer mean of samples in the window
// around at, or nil when unauthorized, empty, or on store failure.
func (r *Resolver) AverageAround(ctx context.Context, at time.Time) *int {
	v, err := r.average(ctx, at)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAuthorized):
			r.metrics.RecordBiometric("unauthorized")
		case errors.Is(err, ErrNoSamples):
			r.metrics.RecordBiometric("empty")
		default:
			r.metrics.RecordBiometric("error")
			if r.l != nil {
				r.l.Warn("biometric window query failed", applogger.Error(err))
			}
		}
		return nil
	}
	r.metrics.RecordBiometric("hit")
	return &v
}

func (r *Resolver) average(ctx context.Context, at time.Time) (int, error) {
	if !r.auth.Granted() {
		// no query is issued at all without the grant
		return 0, ErrNotAuthorized
	}

	key := cache.GenerateKeyWithParams("hr", at.Unix())
	if r.cache != nil {
		var cached int
		if err := r.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	half := r.window / 2
	samples, err := r.store.SamplesBetween(ctx, at.Add(-half), at.Add(half))
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	var sum float64
	for _, s := range samples {
		sum += s.BPM
	}
	// truncation, not rounding: matches the canonical BPM unit of the source
	avg := int(sum / float64(len(samples)))

	if r.cache != nil {
		_ = r.cache.Set(ctx, key, avg, r.cacheTTL)
	}
	return avg, nil
}
