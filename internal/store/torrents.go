package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CommitPoll persists one batch of classified feed records and advances the
// max feed id watermark in a single transaction. Records already present (by
// feed id or content hash) are skipped without touching their existing
// relations, so replaying a crashed cycle cannot duplicate or reclassify
// anything.
func (s *Store) CommitPoll(ctx context.Context, records []TorrentRecord, advanceTo int64) (int, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	inserted := 0
	for _, rec := range records {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO torrent (feed_id, hash, hash_kind, uploaded_at, title, size, trusted, matched)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.FeedID, rec.Hash, int(rec.HashKind), formatTime(rec.UploadedAt),
			rec.Title, rec.Size, boolToInt(rec.Trusted), boolToInt(rec.ShowID != nil),
		)
		if err != nil {
			return 0, fmt.Errorf("insert torrent feed=%d: %w", rec.FeedID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected feed=%d: %w", rec.FeedID, err)
		}
		if affected == 0 {
			continue
		}
		inserted++

		if rec.ShowID == nil {
			continue
		}
		torrentID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("insert id feed=%d: %w", rec.FeedID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO torrent_show (torrent_id, show_id) VALUES (?, ?)",
			torrentID, *rec.ShowID,
		); err != nil {
			return 0, fmt.Errorf("relate torrent %d to show %d: %w", torrentID, *rec.ShowID, err)
		}
	}

	if advanceTo > 0 {
		if err := setStateMaxTx(ctx, tx, KeyMaxFeedID, advanceTo); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit poll: %w", err)
	}
	return inserted, nil
}

// ApplyRematch replaces the relations of the given torrents. Each torrent's
// old relations are deleted before its new show is linked; a nil entry leaves
// the torrent unmatched. Runs in one transaction.
func (s *Store) ApplyRematch(ctx context.Context, matches map[int64]*int64) (int, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	matched := 0
	for torrentID, showID := range matches {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM torrent_show WHERE torrent_id = ?", torrentID,
		); err != nil {
			return 0, fmt.Errorf("clear relations for torrent %d: %w", torrentID, err)
		}
		if showID != nil {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO torrent_show (torrent_id, show_id) VALUES (?, ?)",
				torrentID, *showID,
			); err != nil {
				return 0, fmt.Errorf("relate torrent %d to show %d: %w", torrentID, *showID, err)
			}
			matched++
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE torrent SET matched = ? WHERE id = ?",
			boolToInt(showID != nil), torrentID,
		); err != nil {
			return 0, fmt.Errorf("update matched flag for torrent %d: %w", torrentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rematch: %w", err)
	}
	return matched, nil
}

// UnmatchedTorrents returns every torrent with no show relation, oldest feed
// id first.
func (s *Store) UnmatchedTorrents(ctx context.Context) ([]Torrent, error) {
	return s.queryTorrents(ctx,
		torrentColumns+" FROM torrent WHERE matched = 0 ORDER BY feed_id")
}

// TorrentsByShow returns the torrents related to one show, newest first.
func (s *Store) TorrentsByShow(ctx context.Context, showID int64) ([]Torrent, error) {
	return s.queryTorrents(ctx,
		torrentColumns+` FROM torrent
         JOIN torrent_show ON torrent_show.torrent_id = torrent.id
         WHERE torrent_show.show_id = ? ORDER BY torrent.feed_id DESC`, showID)
}

// RecentTorrents returns the newest torrents by feed id, capped at limit.
func (s *Store) RecentTorrents(ctx context.Context, limit int) ([]Torrent, error) {
	return s.queryTorrents(ctx,
		torrentColumns+" FROM torrent ORDER BY feed_id DESC LIMIT ?", limit)
}

// TorrentShow returns the show a torrent is related to, or nil when it is
// unmatched.
func (s *Store) TorrentShow(ctx context.Context, torrentID int64) (*int64, error) {
	var showID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT show_id FROM torrent_show WHERE torrent_id = ?", torrentID).Scan(&showID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up relation for torrent %d: %w", torrentID, err)
	}
	return &showID, nil
}

// TorrentHashesBetween returns feed id to content hash for torrents whose
// feed id lies in (from, to], the interval a reconciliation run covers.
func (s *Store) TorrentHashesBetween(ctx context.Context, from, to int64) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT feed_id, hash FROM torrent WHERE feed_id > ? AND feed_id <= ?", from, to)
	if err != nil {
		return nil, fmt.Errorf("list hashes between %d and %d: %w", from, to, err)
	}
	defer rows.Close()

	hashes := make(map[int64]string)
	for rows.Next() {
		var feedID int64
		var hash string
		if err := rows.Scan(&feedID, &hash); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		hashes[feedID] = hash
	}
	return hashes, rows.Err()
}

const torrentColumns = "SELECT id, feed_id, hash, hash_kind, uploaded_at, title, size, trusted, matched"

func (s *Store) queryTorrents(ctx context.Context, query string, args ...any) ([]Torrent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query torrents: %w", err)
	}
	defer rows.Close()

	var torrents []Torrent
	for rows.Next() {
		var t Torrent
		var hashKind, trusted, matched int
		var uploadedAt string
		if err := rows.Scan(&t.ID, &t.FeedID, &t.Hash, &hashKind, &uploadedAt,
			&t.Title, &t.Size, &trusted, &matched); err != nil {
			return nil, fmt.Errorf("scan torrent: %w", err)
		}
		t.HashKind = HashKind(hashKind)
		t.Trusted = trusted != 0
		t.Matched = matched != 0
		if t.UploadedAt, err = parseTime(uploadedAt); err != nil {
			return nil, err
		}
		torrents = append(torrents, t)
	}
	return torrents, rows.Err()
}
