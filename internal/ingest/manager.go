package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tosho/internal/anilist"
	"tosho/internal/config"
	"tosho/internal/logging"
	"tosho/internal/nyaa"
	"tosho/internal/services"
	"tosho/internal/state"
	"tosho/internal/store"
)

// FeedClient fetches one page of tracker records.
type FeedClient interface {
	FetchPage(ctx context.Context, page int) ([]nyaa.Record, error)
}

// CatalogClient provides the show catalog and the airing schedule.
type CatalogClient interface {
	Shows(ctx context.Context, fn func(store.CatalogShow) error) error
	Schedule(ctx context.Context, start, stop time.Time) ([]anilist.Airing, error)
}

// Manager runs the ingestion loop.
type Manager struct {
	cfg     *config.Config
	store   *store.Store
	tracker *state.Tracker
	feed    FeedClient
	catalog CatalogClient
	logger  *slog.Logger

	now       func() time.Time
	startedAt time.Time

	// handledRematch is the counter value of the last rematch pass. It
	// starts below any stored value so the first cycle always re-classifies
	// the unmatched backlog.
	handledRematch int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager wires an ingestion manager.
func NewManager(cfg *config.Config, s *store.Store, tracker *state.Tracker, feed FeedClient, catalog CatalogClient, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:            cfg,
		store:          s,
		tracker:        tracker,
		feed:           feed,
		catalog:        catalog,
		logger:         logging.WithComponent(logger, "ingest"),
		now:            time.Now,
		handledRematch: -1,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("ingest manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.startedAt = m.now()
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the current cycle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	feedWake := m.tracker.Subscribe(store.KeyMaxFeedID)
	rematchWake := m.tracker.Subscribe(store.KeyRematchRequest)
	catalogWake := m.tracker.Subscribe(store.KeyLastCatalogSync)
	scheduleWake := m.tracker.Subscribe(store.KeyLastScheduleSync)

	ticker := time.NewTicker(m.cfg.PollInterval())
	defer ticker.Stop()

	for {
		m.Cycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-feedWake.C():
		case <-rematchWake.C():
		case <-catalogWake.C():
		case <-scheduleWake.C():
		}
	}
}

// Cycle performs one pass over everything that is due. Failures of one
// sub-task are logged and do not block the others.
func (m *Manager) Cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cycleID := uuid.NewString()
	ctx = services.WithCycleID(ctx, cycleID)
	logger := m.logger.With(logging.String(logging.FieldRunID, cycleID))

	// Pick up state edits made behind our back before deciding what is due.
	if err := m.tracker.Observe(ctx); err != nil {
		logger.Warn("state observation failed", logging.Error(err))
	}

	pollOK := m.step(ctx, logger, "poll feed", m.pollFeed)
	catalogOK := m.maybeSyncCatalog(ctx, logger)
	scheduleOK := m.maybeSyncSchedule(ctx, logger)
	m.maybeRematch(ctx, logger)

	if pollOK && catalogOK && scheduleOK {
		m.finishInitialSetup(ctx, logger)
	}
}

func (m *Manager) step(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context, *slog.Logger) error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := fn(ctx, logger); err != nil {
		level := slog.LevelError
		if services.Retryable(err) {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, name+" failed", logging.Error(err))
		return false
	}
	return true
}

// finishInitialSetup clears the first-run flag once a cycle has completed a
// full backfill and both syncs.
func (m *Manager) finishInitialSetup(ctx context.Context, logger *slog.Logger) {
	setup, err := m.store.InitialSetup(ctx)
	if err != nil {
		logger.Warn("read initial setup flag", logging.Error(err))
		return
	}
	if !setup {
		return
	}
	if err := m.store.SetInitialSetup(ctx, false); err != nil {
		logger.Warn("clear initial setup flag", logging.Error(err))
		return
	}
	logger.Info("initial setup complete")
}

func (m *Manager) graceOver() bool {
	return m.now().Sub(m.startedAt) >= m.cfg.StartupGrace()
}
