package usecase

import (
	"context"

	"PulseFeed/internal/domain/models"
	drepo "PulseFeed/internal/domain/repository"
	mid "PulseFeed/internal/middleware"
	applogger "PulseFeed/pkg/logger"
)

// Watcher consumes the ledger notification stream and marks the feed stale
// when the watched account sees activity. It never fetches by itself; the
// caller stays in charge of when pages are loaded.
type Watcher struct {
	stream   drepo.LedgerStream
	feed     *Feed
	metrics  drepo.Metrics
	debounce *mid.Debouncer
	l        *applogger.Logger
}

// NewWatcher creates a new Watcher instance. debounce may be nil.
func NewWatcher(stream drepo.LedgerStream, feed *Feed, metrics drepo.Metrics, debounce *mid.Debouncer, l *applogger.Logger) *Watcher {
	return &Watcher{stream: stream, feed: feed, metrics: metrics, debounce: debounce, l: l}
}

// IsConnected returns true if the ledger stream is connected.
func (w *Watcher) IsConnected() bool {
	return w.stream.IsConnected()
}

// Start connects, subscribes, and begins consuming notifications.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.stream.Connect(ctx); err != nil {
		return err
	}
	if err := w.stream.Subscribe(ctx); err != nil {
		return err
	}
	noticeCh, errCh := w.stream.Read(ctx)
	go w.consume(ctx, noticeCh, errCh)
	return nil
}

// consume drains the current notice/error channel pair. The stream's read
// loop closes both channels after sending at most one error, so either
// branch can observe the end of a stream generation; both must resume with
// a fresh Read or staleness signaling dies with the first disconnect.
func (w *Watcher) consume(ctx context.Context, noticeCh <-chan models.LedgerNotice, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			noticeCh, errCh, ok = w.resume(ctx, err)
			if !ok {
				return
			}
		case n, ok := <-noticeCh:
			if !ok {
				// the error, if any, may still sit buffered in errCh
				var cause error
				if errCh != nil {
					select {
					case e, eok := <-errCh:
						if eok {
							cause = e
						}
					default:
					}
				}
				noticeCh, errCh, ok = w.resume(ctx, cause)
				if !ok {
					return
				}
				continue
			}
			if w.debounce != nil && !w.debounce.Allow(n.At) {
				continue
			}
			w.metrics.RecordNotice()
			w.feed.MarkStale()
			if w.l != nil {
				w.l.Debug("account activity", applogger.Uint64("slot", n.Slot))
			}
		}
	}
}

// resume reconnects the stream and starts a new read generation. Reconnect
// waits the configured delay between attempts, so the retry loop does not
// spin.
func (w *Watcher) resume(ctx context.Context, cause error) (<-chan models.LedgerNotice, <-chan error, bool) {
	w.metrics.RecordFetchError("stream")
	if w.l != nil {
		w.l.Warn("ledger stream interrupted, reconnecting", applogger.Error(cause))
	}
	for {
		if ctx.Err() != nil {
			return nil, nil, false
		}
		if err := w.stream.Reconnect(ctx); err != nil {
			if w.l != nil {
				w.l.Warn("ledger stream reconnect failed", applogger.Error(err))
			}
			continue
		}
		noticeCh, errCh := w.stream.Read(ctx)
		return noticeCh, errCh, true
	}
}

// Shutdown closes the stream.
func (w *Watcher) Shutdown(ctx context.Context) error {
	return w.stream.Close()
}
