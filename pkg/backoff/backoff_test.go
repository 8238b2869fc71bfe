package backoff

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"igtracker/pkg/config"
)

func testSyncConfig() *config.SyncConfig {
	cfg := config.DefaultConfig()
	return &cfg.Sync
}

func TestAccountDelayWithinInterval(t *testing.T) {
	cfg := testSyncConfig()
	policy := NewPolicyWithSource(cfg, rand.NewSource(1))

	for i := 0; i < 200; i++ {
		d := policy.AccountDelay(PriorityActive)
		if d < cfg.ActiveDelayMin || d >= cfg.ActiveDelayMax {
			t.Fatalf("active delay %v outside [%v, %v)", d, cfg.ActiveDelayMin, cfg.ActiveDelayMax)
		}
	}

	for i := 0; i < 200; i++ {
		d := policy.AccountDelay(PriorityDeprioritized)
		if d < cfg.DeletedDelayMin || d >= cfg.DeletedDelayMax {
			t.Fatalf("deleted delay %v outside [%v, %v)", d, cfg.DeletedDelayMin, cfg.DeletedDelayMax)
		}
	}
}

func TestErrorDelayWithinInterval(t *testing.T) {
	cfg := testSyncConfig()
	policy := NewPolicyWithSource(cfg, rand.NewSource(2))

	for i := 0; i < 200; i++ {
		d := policy.ErrorDelay(PriorityActive)
		if d < cfg.ActiveErrorDelayMin || d >= cfg.ActiveErrorDelayMax {
			t.Fatalf("active error delay %v outside [%v, %v)", d, cfg.ActiveErrorDelayMin, cfg.ActiveErrorDelayMax)
		}
	}

	for i := 0; i < 200; i++ {
		d := policy.ErrorDelay(PriorityDeprioritized)
		if d < cfg.DeletedErrorDelayMin || d >= cfg.DeletedErrorDelayMax {
			t.Fatalf("deleted error delay %v outside [%v, %v)", d, cfg.DeletedErrorDelayMin, cfg.DeletedErrorDelayMax)
		}
	}
}

func TestDeprioritizedDelaysLonger(t *testing.T) {
	cfg := testSyncConfig()
	policy := NewPolicyWithSource(cfg, rand.NewSource(3))

	active := policy.AccountDelay(PriorityActive)
	deleted := policy.AccountDelay(PriorityDeprioritized)
	if deleted <= active {
		t.Errorf("deprioritized delay %v should exceed active delay %v", deleted, active)
	}
}

func TestDrawDegenerateInterval(t *testing.T) {
	cfg := testSyncConfig()
	cfg.ActiveDelayMin = time.Minute
	cfg.ActiveDelayMax = time.Minute
	policy := NewPolicyWithSource(cfg, rand.NewSource(4))

	if d := policy.AccountDelay(PriorityActive); d != time.Minute {
		t.Errorf("expected fixed 1m delay for degenerate interval, got %v", d)
	}
}

func TestDrawsAreJittered(t *testing.T) {
	cfg := testSyncConfig()
	policy := NewPolicyWithSource(cfg, rand.NewSource(5))

	seen := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		seen[policy.AccountDelay(PriorityActive)] = true
	}
	if len(seen) < 2 {
		t.Error("expected varied delays across draws, got a constant")
	}
}

func TestWaitZeroDelay(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Wait(ctx, time.Hour); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
