package repository

import (
	"context"
	"time"

	"PulseFeed/internal/domain/models"
)

// SignatureSource fetches one page of transaction signatures for an address,
// newest first, optionally before a cursor signature. An empty page with a
// nil error means the history is exhausted. Errors are *models.FetchError.
type SignatureSource interface {
	FetchPage(ctx context.Context, address string, limit int, before *string) ([]models.SignatureInfo, error)
}

// BiometricResolver resolves the windowed biometric average around a point in
// time. It is strictly best-effort: missing authorization, an empty window,
// and store failures all come back as nil, never as an error.
type BiometricResolver interface {
	AverageAround(ctx context.Context, at time.Time) *int
}

// SampleStore queries raw biometric readings in [start, end).
type SampleStore interface {
	SamplesBetween(ctx context.Context, start, end time.Time) ([]models.HeartRateSample, error)
}

// Authorization gates every biometric read. The consent flow itself lives
// outside this service; it only flips the grant.
type Authorization interface {
	Granted() bool
	Grant()
}

// LedgerStream is a live subscription to account activity notifications.
type LedgerStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.LedgerNotice, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher exports enriched records to downstream consumers. Publishing is
// fire-and-forget from the pipeline's point of view.
type Publisher interface {
	Publish(ctx context.Context, rec *models.EnrichedRecord) error
	Close() error
}

// Metrics records operational counters for the pipeline.
type Metrics interface {
	RecordPage(mode string, size int)
	RecordFetchError(kind string)
	RecordBiometric(outcome string)
	RecordLatency(op string, seconds float64)
	RecordNotice()
}
