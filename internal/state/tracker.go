package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tosho/internal/logging"
	"tosho/internal/store"
)

// Tracker evaluates state transitions and wakes watchers on the interesting
// ones. It sees its own writes immediately; writes made behind its back (by
// the CLI, or by hand with a sqlite shell) are caught by the next Observe.
type Tracker struct {
	store  *store.Store
	logger *slog.Logger

	mu       sync.Mutex
	lastSeen map[string]string
	watchers map[string][]*Watcher
}

// NewTracker snapshots the current state and returns a tracker over it.
func NewTracker(ctx context.Context, s *store.Store, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	snapshot, err := s.AllState(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot state: %w", err)
	}
	return &Tracker{
		store:    s,
		logger:   logging.WithComponent(logger, "state"),
		lastSeen: snapshot,
		watchers: make(map[string][]*Watcher),
	}, nil
}

// Subscribe registers a watcher for one key. Watchers live as long as the
// tracker; there is no unsubscribe because the daemon's watchers do too.
func (t *Tracker) Subscribe(key string) *Watcher {
	w := &Watcher{key: key, ch: make(chan struct{}, 1)}
	t.mu.Lock()
	t.watchers[key] = append(t.watchers[key], w)
	t.mu.Unlock()
	return w
}

// Set writes one key and evaluates the transition against the last seen
// value.
func (t *Tracker) Set(ctx context.Context, key, value string) error {
	if err := t.store.SetRawState(ctx, key, value); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evaluateLocked(key, value)
	return nil
}

// RequestRematch increments the rematch counter, waking the rematch watcher.
func (t *Tracker) RequestRematch(ctx context.Context) (int64, error) {
	current, err := t.store.RematchRequest(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := t.Set(ctx, store.KeyRematchRequest, fmt.Sprintf("%d", next)); err != nil {
		return 0, err
	}
	return next, nil
}

// Observe re-reads every key and evaluates the transitions since the last
// snapshot. Called once per manager tick; a notification that raced a crash
// is recovered here instead of lost.
func (t *Tracker) Observe(ctx context.Context) error {
	current, err := t.store.AllState(ctx)
	if err != nil {
		return fmt.Errorf("observe state: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, value := range current {
		t.evaluateLocked(key, value)
	}
	return nil
}

// Value returns the last observed raw value of a key.
func (t *Tracker) Value(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.lastSeen[key]
	return v, ok
}

func (t *Tracker) evaluateLocked(key, value string) {
	old, ok := t.lastSeen[key]
	t.lastSeen[key] = value
	if !ok {
		return
	}
	interesting, err := Interesting(key, old, value)
	if err != nil {
		t.logger.Warn("unreadable state transition",
			logging.String(logging.FieldStateKey, key),
			logging.Error(err))
		return
	}
	if !interesting {
		return
	}
	t.logger.Info("state transition",
		logging.String(logging.FieldStateKey, key),
		logging.String("old", old),
		logging.String("new", value))
	for _, w := range t.watchers[key] {
		w.notify()
	}
}
