package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tosho/internal/logging"
	"tosho/internal/matcher"
	"tosho/internal/nyaa"
	"tosho/internal/services"
	"tosho/internal/store"
)

// pollFeed fetches feed pages newest-first, classifies the records, and
// commits them together with the watermark advance.
func (m *Manager) pollFeed(ctx context.Context, logger *slog.Logger) error {
	maxID, err := m.store.MaxFeedID(ctx)
	if err != nil {
		return err
	}
	setup, err := m.store.InitialSetup(ctx)
	if err != nil {
		return err
	}

	var records []nyaa.Record
	if setup {
		records, err = m.backfill(ctx, logger)
	} else {
		records, err = m.fetchUntilKnown(ctx, logger, maxID)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	shows, err := m.store.AllShowsWithNames(ctx)
	if err != nil {
		return err
	}
	snapshot := matcher.BuildSnapshot(shows, logger)

	advanceTo := maxID
	toInsert := make([]store.TorrentRecord, 0, len(records))
	for _, rec := range records {
		if rec.FeedID > advanceTo {
			advanceTo = rec.FeedID
		}
		torrent := store.TorrentRecord{
			FeedID:     rec.FeedID,
			Hash:       rec.Hash,
			HashKind:   store.HashSHA1,
			UploadedAt: rec.UploadedAt,
			Title:      rec.Title,
			Size:       rec.Size,
			Trusted:    rec.Trusted,
		}
		if showID, ok := snapshot.Classify(rec.Title); ok {
			torrent.ShowID = &showID
		} else {
			logger.Info("torrent unmatched", logging.String("title", rec.Title))
		}
		toInsert = append(toInsert, torrent)
	}

	// Duplicate records are absorbed inside CommitPoll; an error here is a
	// real persistence failure and surfaces as-is.
	inserted, err := m.store.CommitPoll(ctx, toInsert, advanceTo)
	if err != nil {
		return err
	}
	if inserted > 0 {
		logger.Info("ingested torrents",
			logging.Int("inserted", inserted),
			logging.Int64(logging.FieldFeedID, advanceTo))
	}
	return nil
}

// fetchUntilKnown walks pages newest-first and stops as soon as a page
// reaches records at or below the stored watermark. A page that fails to
// parse is skipped rather than failing the poll; its records are bounded
// loss that a reconciliation run can surface later.
func (m *Manager) fetchUntilKnown(ctx context.Context, logger *slog.Logger, maxID int64) ([]nyaa.Record, error) {
	var records []nyaa.Record
	for page := 1; page <= m.cfg.Feed.MaxBackfillPages; page++ {
		if page > 1 {
			logger.Info("loading feed page", logging.Int(logging.FieldPage, page))
		}
		recs, err := m.feed.FetchPage(ctx, page)
		if err != nil {
			if errors.Is(err, services.ErrParse) {
				logger.Warn("skipping malformed feed page",
					logging.Int(logging.FieldPage, page),
					logging.Error(err))
				continue
			}
			return nil, err
		}
		if len(recs) == 0 {
			return records, nil
		}
		records = append(records, recs...)
		for _, rec := range recs {
			if rec.FeedID <= maxID {
				return records, nil
			}
		}
	}
	return records, nil
}

// backfill fetches every page up to the configured limit with a bounded
// worker pool. Pages past the end of the feed come back empty and flatten
// away. Malformed pages are skipped without cancelling the other workers;
// only transport failures abort the backfill.
func (m *Manager) backfill(ctx context.Context, logger *slog.Logger) ([]nyaa.Record, error) {
	pages := make([][]nyaa.Record, m.cfg.Feed.MaxBackfillPages)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Feed.FetchConcurrency)
	for i := range pages {
		g.Go(func() error {
			recs, err := m.feed.FetchPage(gctx, i+1)
			if err != nil {
				if errors.Is(err, services.ErrParse) {
					logger.Warn("skipping malformed feed page",
						logging.Int(logging.FieldPage, i+1),
						logging.Error(err))
					return nil
				}
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			pages[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []nyaa.Record
	for _, page := range pages {
		records = append(records, page...)
	}
	return records, nil
}
