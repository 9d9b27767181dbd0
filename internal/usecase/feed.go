package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PulseFeed/internal/domain/models"
	drepo "PulseFeed/internal/domain/repository"
	applogger "PulseFeed/pkg/logger"

	"github.com/google/uuid"
)

var (
	// ErrFetchInFlight is returned when a fetch is requested while another is
	// still running. The new request is rejected, never queued.
	ErrFetchInFlight = errors.New("feed: fetch already in flight")
	// ErrNoCursor is returned by LoadMore before any page has been fetched or
	// after the history is exhausted.
	ErrNoCursor = errors.New("feed: no cursor, nothing to load")
	// ErrNoAddress is returned by InitialFetch for an empty account address.
	ErrNoAddress = errors.New("feed: address is empty")
)

// Feed is the fetch-and-correlate pipeline and its state: the ordered record
// sequence, the pagination cursor, and the loading flags. All mutation goes
// through InitialFetch and LoadMore; readers get copies.
//
// Records within one page are enriched strictly in sequence, one biometric
// query outstanding at a time. That keeps append order identical to server
// order and bounds load on the biometric store; do not parallelize it.
type Feed struct {
	source    drepo.SignatureSource
	bio       drepo.BiometricResolver
	pub       drepo.Publisher // optional, nil disables export
	metrics   drepo.Metrics
	pageLimit int
	l         *applogger.Logger

	mu      sync.Mutex
	state   models.LoadingState
	records []models.EnrichedRecord
	cursor  *string
	address string
	stale   bool
}

// NewFeed creates a feed pipeline. pub may be nil.
func NewFeed(
	source drepo.SignatureSource,
	bio drepo.BiometricResolver,
	pub drepo.Publisher,
	metrics drepo.Metrics,
	pageLimit int,
) *Feed {
	return &Feed{
		source:    source,
		bio:       bio,
		pub:       pub,
		metrics:   metrics,
		pageLimit: pageLimit,
	}
}

// SetLogger injects a structured logger.
func (f *Feed) SetLogger(l *applogger.Logger) { f.l = l }

// InitialFetch clears the session and fetches the newest page for address.
// A request arriving while any fetch is in flight is rejected with
// ErrFetchInFlight and mutates nothing.
func (f *Feed) InitialFetch(ctx context.Context, address string) error {
	if address == "" {
		return ErrNoAddress
	}

	f.mu.Lock()
	if f.state != models.StateIdle {
		f.mu.Unlock()
		return ErrFetchInFlight
	}
	f.state = models.StateLoadingInitial
	f.records = nil
	f.cursor = nil
	f.address = address
	f.mu.Unlock()

	return f.fetchPage(ctx, "initial", address, nil)
}

// LoadMore fetches the next older page before the current cursor. It is a
// typed no-op when another fetch is running (ErrFetchInFlight) or when there
// is no cursor to advance from (ErrNoCursor).
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.state != models.StateIdle {
		f.mu.Unlock()
		return ErrFetchInFlight
	}
	if f.cursor == nil {
		f.mu.Unlock()
		return ErrNoCursor
	}
	before := *f.cursor
	address := f.address
	f.state = models.StateLoadingMore
	f.mu.Unlock()

	return f.fetchPage(ctx, "more", address, &before)
}

// fetchPage runs one fetch-enrich-append pass. The caller has already moved
// the state machine out of Idle; this always moves it back.
func (f *Feed) fetchPage(ctx context.Context, mode, address string, before *string) error {
	start := time.Now()

	page, err := f.source.FetchPage(ctx, address, f.pageLimit, before)
	if err != nil {
		f.recordFetchError(err)
		f.setIdle()
		return fmt.Errorf("fetch page: %w", err)
	}

	// Sequential enrichment: exactly one biometric query in flight, in server
	// order. The Idle gate guarantees no concurrent pass on this instance.
	enriched := make([]models.EnrichedRecord, 0, len(page))
	for _, info := range page {
		enriched = append(enriched, f.enrich(ctx, info))
	}

	f.mu.Lock()
	f.records = append(f.records, enriched...)
	if len(enriched) > 0 {
		last := enriched[len(enriched)-1].Signature
		f.cursor = &last
	}
	f.stale = false
	f.state = models.StateIdle
	f.mu.Unlock()

	f.metrics.RecordPage(mode, len(page))
	f.metrics.RecordLatency("feed_"+mode, time.Since(start).Seconds())
	f.export(ctx, enriched)

	if f.l != nil {
		f.l.Debug("page appended",
			applogger.String("mode", mode),
			applogger.Int("size", len(page)),
		)
	}
	return nil
}

// enrich attaches the biometric window average to one signature. A missing
// block time falls back to now so the timestamp is never undefined.
func (f *Feed) enrich(ctx context.Context, info models.SignatureInfo) models.EnrichedRecord {
	ts := time.Now()
	if info.BlockTime != nil {
		ts = time.Unix(*info.BlockTime, 0)
	}
	return models.EnrichedRecord{
		ID:        uuid.NewString(),
		Signature: info.Signature,
		Slot:      info.Slot,
		Timestamp: ts,
		Metric:    f.bio.AverageAround(ctx, ts),
	}
}

// export publishes appended records best-effort; a broker failure never
// affects the pipeline state.
func (f *Feed) export(ctx context.Context, recs []models.EnrichedRecord) {
	if f.pub == nil {
		return
	}
	for i := range recs {
		if err := f.pub.Publish(ctx, &recs[i]); err != nil && f.l != nil {
			f.l.Warn("record export failed",
				applogger.String("signature", recs[i].Signature),
				applogger.Error(err),
			)
		}
	}
}

func (f *Feed) recordFetchError(err error) {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		f.metrics.RecordFetchError(string(fe.Kind))
		return
	}
	f.metrics.RecordFetchError("unknown")
}

func (f *Feed) setIdle() {
	f.mu.Lock()
	f.state = models.StateIdle
	f.mu.Unlock()
}

// Records returns a copy of the ordered result sequence.
func (f *Feed) Records() []models.EnrichedRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.EnrichedRecord, len(f.records))
	copy(out, f.records)
	return out
}

// Cursor returns the current pagination cursor, nil before the first
// successful non-empty page.
func (f *Feed) Cursor() *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor == nil {
		return nil
	}
	c := *f.cursor
	return &c
}

// IsLoadingInitial reports whether an initial fetch is in flight.
func (f *Feed) IsLoadingInitial() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == models.StateLoadingInitial
}

// IsLoadingMore reports whether a load-more fetch is in flight.
func (f *Feed) IsLoadingMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == models.StateLoadingMore
}

// MarkStale flags that the watched account saw activity after the last fetch.
func (f *Feed) MarkStale() {
	f.mu.Lock()
	f.stale = true
	f.mu.Unlock()
}

// Snapshot returns the read-only view served to the UI.
func (f *Feed) Snapshot() models.FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]models.EnrichedRecord, len(f.records))
	copy(records, f.records)
	var cursor *string
	if f.cursor != nil {
		c := *f.cursor
		cursor = &c
	}
	return models.FeedSnapshot{
		Records:        records,
		Cursor:         cursor,
		LoadingInitial: f.state == models.StateLoadingInitial,
		LoadingMore:    f.state == models.StateLoadingMore,
		Stale:          f.stale,
	}
}
