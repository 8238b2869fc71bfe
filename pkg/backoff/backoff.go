package backoff

import (
	"context"
	"math/rand"
	"time"

	"igtracker/pkg/config"
)

// Priority is the scheduling class of an account. Soft-deleted accounts
// are deprioritized: longer delays between fetches and tolerance for
// being dropped under a run-size cap.
type Priority int

const (
	// PriorityActive is a live, non-deleted account
	PriorityActive Priority = iota
	// PriorityDeprioritized is a soft-deleted account kept for continuity
	PriorityDeprioritized
)

// Interval is a closed range of sleep durations
type Interval struct {
	Min time.Duration
	Max time.Duration
}

// Policy decides how long the sweep sleeps between accounts and after
// observed failures. It is a state-free function of (priority, outcome);
// every draw is independent and uniformly jittered to avoid synchronized
// retry storms against the upstream service.
type Policy struct {
	active     Interval
	deleted    Interval
	activeErr  Interval
	deletedErr Interval
	rng        *rand.Rand
}

// NewPolicy creates a backoff policy from the sync configuration
func NewPolicy(cfg *config.SyncConfig) *Policy {
	return NewPolicyWithSource(cfg, rand.NewSource(time.Now().UnixNano()))
}

// NewPolicyWithSource creates a policy with an explicit randomness
// source, used by tests for deterministic draws
func NewPolicyWithSource(cfg *config.SyncConfig, src rand.Source) *Policy {
	return &Policy{
		active:     Interval{cfg.ActiveDelayMin, cfg.ActiveDelayMax},
		deleted:    Interval{cfg.DeletedDelayMin, cfg.DeletedDelayMax},
		activeErr:  Interval{cfg.ActiveErrorDelayMin, cfg.ActiveErrorDelayMax},
		deletedErr: Interval{cfg.DeletedErrorDelayMin, cfg.DeletedErrorDelayMax},
		rng:        rand.New(src),
	}
}

// AccountDelay returns the steady-state inter-account delay, applied
// after every account regardless of outcome
func (p *Policy) AccountDelay(priority Priority) time.Duration {
	if priority == PriorityDeprioritized {
		return p.draw(p.deleted)
	}
	return p.draw(p.active)
}

// ErrorDelay returns the additional one-time backoff after a
// connection-class error, before moving on to the next account
func (p *Policy) ErrorDelay(priority Priority) time.Duration {
	if priority == PriorityDeprioritized {
		return p.draw(p.deletedErr)
	}
	return p.draw(p.activeErr)
}

// draw picks a uniform random duration from the interval
func (p *Policy) draw(interval Interval) time.Duration {
	if interval.Max <= interval.Min {
		return interval.Min
	}
	return interval.Min + time.Duration(p.rng.Int63n(int64(interval.Max-interval.Min)))
}

// Wait sleeps for the given duration or until the context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
