package ingest

import (
	"context"
	"log/slog"

	"tosho/internal/logging"
	"tosho/internal/matcher"
)

// maybeRematch re-classifies the unmatched backlog when the rematch counter
// moved past the last handled value. The first cycle after startup always
// runs a pass; requests made while the daemon was down are not lost.
func (m *Manager) maybeRematch(ctx context.Context, logger *slog.Logger) {
	counter, err := m.store.RematchRequest(ctx)
	if err != nil {
		logger.Warn("read rematch counter", logging.Error(err))
		return
	}
	if m.handledRematch >= 0 && counter <= m.handledRematch {
		return
	}
	if m.step(ctx, logger, "rematch", m.rematch) {
		m.handledRematch = counter
	}
}

func (m *Manager) rematch(ctx context.Context, logger *slog.Logger) error {
	unmatched, err := m.store.UnmatchedTorrents(ctx)
	if err != nil {
		return err
	}
	if len(unmatched) == 0 {
		return nil
	}

	shows, err := m.store.AllShowsWithNames(ctx)
	if err != nil {
		return err
	}
	snapshot := matcher.BuildSnapshot(shows, logger)

	matches := make(map[int64]*int64)
	for _, torrent := range unmatched {
		if showID, ok := snapshot.Classify(torrent.Title); ok {
			matches[torrent.ID] = &showID
		}
	}
	if len(matches) == 0 {
		logger.Info("rematch found nothing new",
			logging.Int("unmatched", len(unmatched)))
		return nil
	}

	matched, err := m.store.ApplyRematch(ctx, matches)
	if err != nil {
		return err
	}
	logger.Info("rematch complete",
		logging.Int("unmatched", len(unmatched)),
		logging.Int("newly_matched", matched))
	return nil
}
