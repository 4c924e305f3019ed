package core

import (
	"context"
	"sync"
	"time"

	"VestLedger/internal/asset"
)

// Authority reports whether the current invocation carries a principal's
// authority.
type Authority interface {
	HasAuth(name asset.Name) bool
}

// Signers is an Authority backed by an explicit set of principals.
type Signers map[asset.Name]struct{}

// NewSigners builds a Signers set.
func NewSigners(names ...asset.Name) Signers {
	s := make(Signers, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Signers) HasAuth(name asset.Name) bool {
	_, ok := s[name]
	return ok
}

// Names returns the signing principals in no particular order.
func (s Signers) Names() []asset.Name {
	out := make([]asset.Name, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	return out
}

// Directory reports whether a principal is a resolvable account.
type Directory interface {
	IsAccount(ctx context.Context, name asset.Name) (bool, error)
}

// Notifier fans a committed receipt out to an affected principal. Delivery
// is best-effort and never affects the outcome of the action.
type Notifier interface {
	Notify(ctx context.Context, recipient asset.Name, receipt *Receipt) error
}

// Clock supplies the current time. Only second resolution is used.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ManualClock is a settable clock for tests and replays.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
