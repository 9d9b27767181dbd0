package models

import "time"

// LoadingState describes which fetch, if any, the feed pipeline is running.
// Exactly one fetch may be in flight at a time; requests arriving while the
// state is not Idle are rejected, never queued.
type LoadingState int32

const (
	StateIdle LoadingState = iota
	StateLoadingInitial
	StateLoadingMore
)

func (s LoadingState) String() string {
	switch s {
	case StateLoadingInitial:
		return "loading_initial"
	case StateLoadingMore:
		return "loading_more"
	default:
		return "idle"
	}
}

// SignatureInfo is one transaction signature entry as returned by the ledger
// RPC service. Signature is an opaque unique transport ID; BlockTime may be
// absent for very recent or pruned transactions.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *int64 // unix seconds
	Err       string // opaque failure payload from the ledger, "" on success
}

// EnrichedRecord is a transaction signature joined with a windowed biometric
// average. Metric stays nil when no samples exist around Timestamp or the
// biometric read was never authorized.
type EnrichedRecord struct {
	ID        string    `json:"id"`
	Signature string    `json:"signature"`
	Slot      uint64    `json:"slot"`
	Timestamp time.Time `json:"timestamp"`
	Metric    *int      `json:"metric,omitempty"` // BPM, truncated mean
}

// HeartRateSample is a single biometric reading from the sample store.
type HeartRateSample struct {
	At  time.Time
	BPM float64
}

// LedgerNotice signals activity on the watched account, delivered by the
// websocket subscription. It carries no payload the feed can append; it only
// tells the session that a refetch would find new signatures.
type LedgerNotice struct {
	Slot uint64
	At   time.Time
}
