package models

import "fmt"

// FetchErrorKind classifies page-fetch failures. The pipeline treats all
// three the same way (abort the fetch, append nothing, no automatic retry);
// callers use the kind to decide whether a manual retry makes sense.
type FetchErrorKind string

const (
	FetchTransport      FetchErrorKind = "transport"
	FetchDecode         FetchErrorKind = "decode"
	FetchRemoteRejected FetchErrorKind = "remote_rejected"
)

// FetchError is a typed page-fetch failure from the ledger RPC boundary.
type FetchError struct {
	Kind    FetchErrorKind
	Code    int    // protocol error code, only for FetchRemoteRejected
	Message string // protocol error message, only for FetchRemoteRejected
	Err     error  // underlying cause, only for transport/decode
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchRemoteRejected:
		return fmt.Sprintf("rpc rejected: code=%d %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a network/connectivity failure.
func NewTransportError(err error) *FetchError {
	return &FetchError{Kind: FetchTransport, Err: err}
}

// NewDecodeError wraps a malformed or unexpected response body.
func NewDecodeError(err error) *FetchError {
	return &FetchError{Kind: FetchDecode, Err: err}
}

// NewRemoteRejectedError carries a protocol-level error envelope.
func NewRemoteRejectedError(code int, message string) *FetchError {
	return &FetchError{Kind: FetchRemoteRejected, Code: code, Message: message}
}
