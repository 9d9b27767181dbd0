package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseFeed/internal/domain/models"
)

type fakeSource struct {
	pages   [][]models.SignatureInfo
	err     error
	calls   int
	befores []*string
	limits  []int
}

func (s *fakeSource) FetchPage(_ context.Context, _ string, limit int, before *string) ([]models.SignatureInfo, error) {
	s.calls++
	s.limits = append(s.limits, limit)
	if before != nil {
		b := *before
		s.befores = append(s.befores, &b)
	} else {
		s.befores = append(s.befores, nil)
	}
	if s.err != nil {
		return nil, s.err
	}
	if len(s.pages) == 0 {
		return nil, nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

type fakeResolver struct {
	values map[int64]*int
	calls  []time.Time
}

func (r *fakeResolver) AverageAround(_ context.Context, at time.Time) *int {
	r.calls = append(r.calls, at)
	if r.values == nil {
		return nil
	}
	return r.values[at.Unix()]
}

type fakePublisher struct {
	published []string
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, rec *models.EnrichedRecord) error {
	p.published = append(p.published, rec.Signature)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordPage(string, int)      {}
func (nopMetrics) RecordFetchError(string)     {}
func (nopMetrics) RecordBiometric(string)      {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordNotice()               {}

func sig(signature string, slot uint64, blockTime *int64) models.SignatureInfo {
	return models.SignatureInfo{Signature: signature, Slot: slot, BlockTime: blockTime}
}

func i64(v int64) *int64 { return &v }
func iptr(v int) *int    { return &v }

func TestInitialFetchAppendsPageAndAdvancesCursor(t *testing.T) {
	bt := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC).Unix()
	src := &fakeSource{pages: [][]models.SignatureInfo{{
		sig("sigA", 100, i64(bt)),
		sig("sigB", 99, i64(bt-10)),
		sig("sigC", 98, i64(bt-20)),
	}}}
	bio := &fakeResolver{values: map[int64]*int{bt - 10: iptr(72)}}
	feed := NewFeed(src, bio, nil, nopMetrics{}, 25)

	require.NoError(t, feed.InitialFetch(context.Background(), "addr"))

	recs := feed.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "sigA", recs[0].Signature)
	assert.Equal(t, "sigB", recs[1].Signature)
	assert.Equal(t, "sigC", recs[2].Signature)

	// [absent, value, absent] stays in order; the cursor still advances to the
	// last element of the page regardless of enrichment outcomes.
	assert.Nil(t, recs[0].Metric)
	require.NotNil(t, recs[1].Metric)
	assert.Equal(t, 72, *recs[1].Metric)
	assert.Nil(t, recs[2].Metric)

	cursor := feed.Cursor()
	require.NotNil(t, cursor)
	assert.Equal(t, "sigC", *cursor)

	// First page is fetched without a cursor.
	require.Len(t, src.befores, 1)
	assert.Nil(t, src.befores[0])
	assert.Equal(t, 25, src.limits[0])

	assert.False(t, feed.IsLoadingInitial())
	assert.False(t, feed.IsLoadingMore())
}

func TestInitialFetchClearsPreviousSession(t *testing.T) {
	src := &fakeSource{pages: [][]models.SignatureInfo{
		{sig("old1", 50, nil), sig("old2", 49, nil)},
		{sig("new1", 100, nil)},
	}}
	feed := NewFeed(src, &fakeResolver{}, nil, nopMetrics{}, 10)

	require.NoError(t, feed.InitialFetch(context.Background(), "addr1"))
	require.NoError(t, feed.InitialFetch(context.Background(), "addr2"))

	recs := feed.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "new1", recs[0].Signature)

	cursor := feed.Cursor()
	require.NotNil(t, cursor)
	assert.Equal(t, "new1", *cursor)
}

func TestInitialFetchEmptyAddress(t *testing.T) {
	feed := NewFeed(&fakeSource{}, &fakeResolver{}, nil, nopMetrics{}, 10)
	assert.ErrorIs(t, feed.InitialFetch(context.Background(), ""), ErrNoAddress)
}

func TestLoadMoreConcatenatesOlderPage(t *testing.T) {
	src := &fakeSource{pages: [][]models.SignatureInfo{
		{sig("sigA", 100, nil), sig("sigB", 99, nil)},
		{sig("sigC", 98, nil), sig("sigD", 97, nil)},
	}}
	feed := NewFeed(src, &fakeResolver{}, nil, nopMetrics{}, 10)

	require.NoError(t, feed.InitialFetch(context.Background(), "addr"))
	require.NoError(t, feed.LoadMore(context.Background()))

	recs := feed.Records()
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"sigA", "sigB", "sigC", "sigD"}, []string{
		recs[0].Signature, recs[1].Signature, recs[2].Signature, recs[3].Signature,
	})

	// Second request passes the previous page's last signature as the cursor.
	require.Len(t, src.befores, 2)
	require.NotNil(t, src.befores[1])
	assert.Equal(t, "sigB", *src.befores[1])

	cursor := feed.Cursor()
	require.NotNil(t, cursor)
	assert.Equal(t, "sigD", *cursor)
}

func TestLoadMoreWithoutCursor(t *testing.T) {
	feed := NewFeed(&fakeSource{}, &fakeResolver{}, nil, nopMetrics{}, 10)
	assert.ErrorIs(t, feed.LoadMore(context.Background()), ErrNoCursor)
}

func TestLoadMoreOnExhaustedHistory(t *testing.T) {
	src := &fakeSource{pages: [][]models.SignatureInfo{
		{sig("sigA", 100, nil)},
		{}, // history exhausted
	}}
	feed := NewFeed(src, &fakeResolver{}, nil, nopMetrics{}, 10)

	require.NoError(t, feed.InitialFetch(context.Background(), "addr"))
	require.NoError(t, feed.LoadMore(context.Background()))

	// Empty page: nothing appended, cursor unchanged, back to idle.
	assert.Len(t, feed.Records(), 1)
	cursor := feed.Cursor()
	require.NotNil(t, cursor)
	assert.Equal(t, "sigA", *cursor)
	assert.False(t, feed.IsLoadingMore())

	// The next LoadMore retries from the same cursor rather than erroring.
	src.pages = [][]models.SignatureInfo{{sig("sigB", 99, nil)}}
	require.NoError(t, feed.LoadMore(context.Background()))
	require.NotNil(t, src.befores[2])
	assert.Equal(t, "sigA", *src.befores[2])
	assert.Len(t, feed.Records(), 2)
}

func TestFetchErrorLeavesStateUntouched(t *testing.T) {
	src := &fakeSource{pages: [][]models.SignatureInfo{
		{sig("sigA", 100, nil)},
	}}
	feed := NewFeed(src, &fakeResolver{}, nil, nopMetrics{}, 10)
	require.NoError(t, feed.InitialFetch(context.Background(), "addr"))

	src.err = models.NewRemoteRejectedError(429, "too many requests")
	err := feed.LoadMore(context.Background())
	require.Error(t, err)

	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FetchRemoteRejected, fe.Kind)
	assert.Equal(t, 429, fe.Code)

	// No partial append, cursor unchanged, state back to idle.
	assert.Len(t, feed.Records(), 1)
	cursor := feed.Cursor()
	require.NotNil(t, cursor)
	assert.Equal(t, "sigA", *cursor)
	assert.False(t, feed.IsLoadingInitial())
	assert.False(t, feed.IsLoadingMore())

	// Recovery: the same cursor works once the source does again.
	src.err = nil
	src.pages = [][]models.SignatureInfo{{sig("sigB", 99, nil)}}
	require.NoError(t, feed.LoadMore(context.Background()))
	assert.Len(t, feed.Records(), 2)
}

func TestReentrantFetchRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := &blockingSource{release: release, started: started}
	feed := NewFeed(src, &fakeResolver{}, nil, nopMetrics{}, 10)

	done := make(chan error, 1)
	go func() { done <- feed.InitialFetch(context.Background(), "addr") }()
	<-started

	// Both operations are rejected while the first fetch is in flight.
	assert.ErrorIs(t, feed.InitialFetch(context.Background(), "addr"), ErrFetchInFlight)
	assert.ErrorIs(t, feed.LoadMore(context.Background()), ErrFetchInFlight)
	assert.True(t, feed.IsLoadingInitial())

	close(release)
	require.NoError(t, <-done)
	assert.False(t, feed.IsLoadingInitial())
}

type blockingSource struct {
	release chan struct{}
	started chan struct{}
}

func (s *blockingSource) FetchPage(_ context.Context, _ string, _ int, _ *string) ([]models.SignatureInfo, error) {
	close(s.started)
	<-s.release
	return []models.SignatureInfo{{Signature: "sigA", Slot: 1}}, nil
}

func TestEnrichmentFallsBackToNowWithoutBlockTime(t *testing.T) {
	src := &fakeSource{pages: [][]models.SignatureInfo{{sig("sigA", 100, nil)}}}
	bio := &fakeResolver{}
	feed := NewFeed(src, bio, nil, nopMetrics{}, 10)

	before := time.Now()
	require.NoError(t, feed.InitialFetch(context.Background(), "addr"))
	after := time.Now()

	recs := feed.Records()
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Timestamp.Before(before))
	assert.False(t, recs[0].Timestamp.After(after))

	// The resolver is queried at the fallback timestamp.
	require.Len(t, bio.calls, 1)
	assert.Equal(t, recs[0].Timestamp, bio.calls[0])
}

func TestExportPublishesEveryAppendedRecord(t *testing.T) {
	src := &fakeSource{pages: [][]models.SignatureInfo{
		{sig("sigA", 100, nil), sig("sigB", 99, nil)},
	}}
	pub := &fakePublisher{}
	feed := NewFeed(src, &fakeResolver{}, pub, nopMetrics{}, 10)

	require.NoError(t, feed.InitialFetch(context.Background(), "addr"))
	assert.Equal(t, []string{"sigA", "sigB"}, pub.published)
}

func TestExportFailureDoesNotAffectPipeline(t *testing.T) {
	src := &fakeSource{pages: [][]models.SignatureInfo{{sig("sigA", 100, nil)}}}
	pub := &fakePublisher{err: assert.AnError}
	feed := NewFeed(src, &fakeResolver{}, pub, nopMetrics{}, 10)

	require.NoError(t, feed.InitialFetch(context.Background(), "addr"))
	assert.Len(t, feed.Records(), 1)
}

func TestSnapshotReflectsStaleFlag(t *testing.T) {
	src := &fakeSource{pages: [][]models.SignatureInfo{
		{sig("sigA", 100, nil)},
		{sig("sigB", 99, nil)},
	}}
	feed := NewFeed(src, &fakeResolver{}, nil, nopMetrics{}, 10)
	require.NoError(t, feed.InitialFetch(context.Background(), "addr"))

	feed.MarkStale()
	assert.True(t, feed.Snapshot().Stale)

	// A successful page clears the flag.
	require.NoError(t, feed.LoadMore(context.Background()))
	assert.False(t, feed.Snapshot().Stale)
}

func TestFetchErrorKinds(t *testing.T) {
	var fe *models.FetchError
	var err error = models.NewTransportError(assert.AnError)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FetchTransport, fe.Kind)
	assert.ErrorIs(t, err, assert.AnError)

	err = models.NewDecodeError(assert.AnError)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FetchDecode, fe.Kind)

	err = models.NewRemoteRejectedError(http.StatusTooManyRequests, "rate limited")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FetchRemoteRejected, fe.Kind)
	assert.Equal(t, http.StatusTooManyRequests, fe.Code)
}
