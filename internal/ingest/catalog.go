package ingest

import (
	"context"
	"log/slog"
	"time"

	"tosho/internal/logging"
	"tosho/internal/store"
)

// maybeSyncCatalog refreshes the show catalog when the sync interval has
// elapsed. Returns true when nothing was due or the sync succeeded.
func (m *Manager) maybeSyncCatalog(ctx context.Context, logger *slog.Logger) bool {
	last, err := m.store.LastCatalogSync(ctx)
	if err != nil {
		logger.Warn("read last catalog sync", logging.Error(err))
		return false
	}
	if m.now().Sub(last) < m.cfg.ShowsSyncInterval() {
		return true
	}
	// A crash-looping process must not hammer the catalog API.
	if !m.graceOver() {
		logger.Debug("catalog sync due, waiting for startup grace")
		return false
	}
	return m.step(ctx, logger, "catalog sync", m.syncCatalog)
}

func (m *Manager) syncCatalog(ctx context.Context, logger *slog.Logger) error {
	count := 0
	err := m.catalog.Shows(ctx, func(cs store.CatalogShow) error {
		if _, err := m.store.UpsertCatalogShow(ctx, cs); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	if err := m.store.SetLastCatalogSync(ctx, m.now()); err != nil {
		return err
	}
	logger.Info("catalog synced", logging.Int("shows", count))
	return nil
}

// maybeSyncSchedule refreshes the airing schedule when the sync interval has
// elapsed. Returns true when nothing was due or the sync succeeded.
func (m *Manager) maybeSyncSchedule(ctx context.Context, logger *slog.Logger) bool {
	last, err := m.store.LastScheduleSync(ctx)
	if err != nil {
		logger.Warn("read last schedule sync", logging.Error(err))
		return false
	}
	if m.now().Sub(last) < m.cfg.ScheduleSyncInterval() {
		return true
	}
	if !m.graceOver() {
		logger.Debug("schedule sync due, waiting for startup grace")
		return false
	}
	return m.step(ctx, logger, "schedule sync", m.syncSchedule)
}

func (m *Manager) syncSchedule(ctx context.Context, logger *slog.Logger) error {
	// The site shows yesterday through next week; fetching one extra day
	// covers the gap until the next reload.
	today := m.now().UTC().Truncate(24 * time.Hour)
	start := today.Add(-24 * time.Hour)
	stop := today.Add(7 * 24 * time.Hour)

	airings, err := m.catalog.Schedule(ctx, start, stop)
	if err != nil {
		return err
	}

	shows, err := m.store.Shows(ctx)
	if err != nil {
		return err
	}
	byCatalogID := make(map[int64]int64, len(shows))
	for _, show := range shows {
		byCatalogID[show.CatalogID] = show.ID
	}

	entries := make([]store.ScheduleEntry, 0, len(airings))
	for _, airing := range airings {
		showID, ok := byCatalogID[airing.CatalogID]
		if !ok {
			// Airings for formats we do not track.
			continue
		}
		entries = append(entries, store.ScheduleEntry{
			ShowID:  showID,
			Episode: airing.Episode,
			AirsAt:  airing.AiringAt,
		})
	}

	if err := m.store.SyncSchedule(ctx, start, stop, entries); err != nil {
		return err
	}
	if err := m.store.SetLastScheduleSync(ctx, m.now()); err != nil {
		return err
	}
	logger.Info("schedule synced", logging.Int("entries", len(entries)))
	return nil
}
