package biometrics

import "sync/atomic"

// Authorizer is a one-way grant for reading the biometric signal. The actual
// consent flow lives in the client application; this side only remembers
// whether the grant has been given for the session.
type Authorizer struct {
	granted atomic.Bool
}

// NewAuthorizer seeds the grant state, typically from config.
func NewAuthorizer(granted bool) *Authorizer {
	a := &Authorizer{}
	a.granted.Store(granted)
	return a
}

// Granted reports whether biometric reads are allowed.
func (a *Authorizer) Granted() bool { return a.granted.Load() }

// Grant permits biometric reads for the rest of the session.
func (a *Authorizer) Grant() { a.granted.Store(true) }
