package state_test

import (
	"context"
	"testing"

	"tosho/internal/state"
	"tosho/internal/store"
	"tosho/internal/testsupport"
)

func newTracker(t *testing.T) (*state.Tracker, *store.Store) {
	t.Helper()
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	tracker, err := state.NewTracker(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return tracker, s
}

func drained(w *state.Watcher) bool {
	select {
	case <-w.C():
		return true
	default:
		return false
	}
}

func TestForwardProgressIsSilent(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()
	w := tracker.Subscribe(store.KeyMaxFeedID)

	if err := tracker.Set(ctx, store.KeyMaxFeedID, "100"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tracker.Set(ctx, store.KeyMaxFeedID, "200"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if drained(w) {
		t.Fatal("forward watermark progress woke the watcher")
	}
}

func TestWatermarkRegressionNotifiesOnce(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()
	w := tracker.Subscribe(store.KeyMaxFeedID)

	if err := tracker.Set(ctx, store.KeyMaxFeedID, "100"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tracker.Set(ctx, store.KeyMaxFeedID, "40"); err != nil {
		t.Fatalf("Set regression: %v", err)
	}
	if !drained(w) {
		t.Fatal("watermark regression did not wake the watcher")
	}
	if drained(w) {
		t.Fatal("regression produced more than one wake")
	}
}

func TestRematchIncrementNotifies(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()
	w := tracker.Subscribe(store.KeyRematchRequest)

	n, err := tracker.RequestRematch(ctx)
	if err != nil {
		t.Fatalf("RequestRematch: %v", err)
	}
	if n != 1 {
		t.Fatalf("counter = %d, want 1", n)
	}
	if !drained(w) {
		t.Fatal("rematch increment did not wake the watcher")
	}

	// Lowering the counter is bookkeeping, not a request.
	if err := tracker.Set(ctx, store.KeyRematchRequest, "0"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if drained(w) {
		t.Fatal("counter decrement woke the watcher")
	}
}

func TestSyncTimestampRegressionNotifies(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()
	w := tracker.Subscribe(store.KeyLastCatalogSync)

	if err := tracker.Set(ctx, store.KeyLastCatalogSync, `"2026-08-26T00:00:00Z"`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if drained(w) {
		t.Fatal("forward sync time woke the watcher")
	}
	if err := tracker.Set(ctx, store.KeyLastCatalogSync, `"1970-01-01T00:00:00Z"`); err != nil {
		t.Fatalf("Set regression: %v", err)
	}
	if !drained(w) {
		t.Fatal("sync time regression did not wake the watcher")
	}
}

func TestObserveCatchesExternalWrites(t *testing.T) {
	tracker, s := newTracker(t)
	ctx := context.Background()
	w := tracker.Subscribe(store.KeyMaxFeedID)

	if err := tracker.Set(ctx, store.KeyMaxFeedID, "100"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Another process lowers the watermark directly in the database.
	if err := s.SetMaxFeedID(ctx, 10); err != nil {
		t.Fatalf("SetMaxFeedID: %v", err)
	}
	if drained(w) {
		t.Fatal("external write visible before Observe")
	}

	if err := tracker.Observe(ctx); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if !drained(w) {
		t.Fatal("Observe did not surface the external regression")
	}

	// Nothing changed; a second Observe stays quiet.
	if err := tracker.Observe(ctx); err != nil {
		t.Fatalf("second Observe: %v", err)
	}
	if drained(w) {
		t.Fatal("idle Observe woke the watcher")
	}
}

func TestCoalescedWakes(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()
	w := tracker.Subscribe(store.KeyRematchRequest)

	for i := 0; i < 3; i++ {
		if _, err := tracker.RequestRematch(ctx); err != nil {
			t.Fatalf("RequestRematch: %v", err)
		}
	}
	if !drained(w) {
		t.Fatal("no wake after three requests")
	}
	if drained(w) {
		t.Fatal("wakes were not coalesced")
	}
}

func TestInterestingPolicy(t *testing.T) {
	cases := []struct {
		name     string
		key      string
		old, new string
		want     bool
	}{
		{"watermark forward", store.KeyMaxFeedID, "10", "20", false},
		{"watermark back", store.KeyMaxFeedID, "20", "10", true},
		{"watermark equal", store.KeyMaxFeedID, "10", "10", false},
		{"rematch up", store.KeyRematchRequest, "0", "1", true},
		{"rematch down", store.KeyRematchRequest, "2", "1", false},
		{"catalog sync forward", store.KeyLastCatalogSync, `"2026-01-01T00:00:00Z"`, `"2026-02-01T00:00:00Z"`, false},
		{"catalog sync back", store.KeyLastCatalogSync, `"2026-02-01T00:00:00Z"`, `"2026-01-01T00:00:00Z"`, true},
		{"schedule sync back", store.KeyLastScheduleSync, `"2026-02-01T00:00:00Z"`, `"2026-01-01T00:00:00Z"`, true},
		{"setup flag", store.KeyInitialSetup, "true", "false", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := state.Interesting(tc.key, tc.old, tc.new)
			if err != nil {
				t.Fatalf("Interesting: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Interesting(%s, %s -> %s) = %v, want %v", tc.key, tc.old, tc.new, got, tc.want)
			}
		})
	}

	if _, err := state.Interesting("bogus", "1", "2"); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if _, err := state.Interesting(store.KeyMaxFeedID, "x", "2"); err == nil {
		t.Fatal("expected error for unparseable value")
	}
}
