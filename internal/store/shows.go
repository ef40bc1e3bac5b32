package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// UpsertCatalogShow inserts or updates one show and its catalog-delivered
// names. Curated aliases (NameAdditional) are never touched here: the catalog
// does not own them.
func (s *Store) UpsertCatalogShow(ctx context.Context, cs CatalogShow) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var season any
	if cs.Season != nil {
		season = EncodeYearSeason(*cs.Season)
	}

	var showID int64
	err = tx.QueryRowContext(ctx, `
        INSERT INTO show (anilist_id, format, season)
        VALUES (?, ?, ?)
        ON CONFLICT (anilist_id) DO UPDATE SET format = excluded.format, season = excluded.season
        RETURNING id`,
		cs.CatalogID, int(cs.Format), season,
	).Scan(&showID)
	if err != nil {
		return 0, fmt.Errorf("upsert show %d: %w", cs.CatalogID, err)
	}

	if err := setNameTx(ctx, tx, showID, NamePrimary, cs.Romaji); err != nil {
		return 0, err
	}
	if err := setNameTx(ctx, tx, showID, NameAlternate, cs.English); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit show upsert: %w", err)
	}
	return showID, nil
}

// setNameTx makes name the sole row of the given kind for the show. An empty
// name clears the kind; the catalog omits english titles for many shows.
func setNameTx(ctx context.Context, tx *sql.Tx, showID int64, kind NameKind, name string) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM show_name WHERE show_id = ? AND kind = ? AND name != ?",
		showID, int(kind), name,
	); err != nil {
		return fmt.Errorf("clear %s names for show %d: %w", kind, showID, err)
	}
	if name == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO show_name (show_id, kind, name) VALUES (?, ?, ?)",
		showID, int(kind), name,
	); err != nil {
		return fmt.Errorf("set %s name for show %d: %w", kind, showID, err)
	}
	return nil
}

// AddShowName records a curated alias for the show with the given catalog id.
// Adding the same alias twice is a no-op.
func (s *Store) AddShowName(ctx context.Context, catalogID int64, name string) error {
	var showID int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM show WHERE anilist_id = ?", catalogID).Scan(&showID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no show with catalog id %d", catalogID)
	}
	if err != nil {
		return fmt.Errorf("look up show %d: %w", catalogID, err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO show_name (show_id, kind, name) VALUES (?, ?, ?)",
		showID, int(NameAdditional), name,
	); err != nil {
		return fmt.Errorf("add alias for show %d: %w", catalogID, err)
	}
	return nil
}

// ShowByCatalogID fetches one show by its catalog id.
func (s *Store) ShowByCatalogID(ctx context.Context, catalogID int64) (*Show, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, anilist_id, format, season FROM show WHERE anilist_id = ?", catalogID)
	show, err := scanShow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return show, nil
}

// Shows returns every show ordered by catalog id.
func (s *Store) Shows(ctx context.Context) ([]Show, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, anilist_id, format, season FROM show ORDER BY anilist_id")
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	defer rows.Close()

	var shows []Show
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, *show)
	}
	return shows, rows.Err()
}

// AllShowsWithNames loads every show together with its names, ordered by show
// id. Shows without any name are included; the classifier skips them.
func (s *Store) AllShowsWithNames(ctx context.Context) ([]ShowWithNames, error) {
	shows, err := s.Shows(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, show_id, kind, name FROM show_name ORDER BY show_id, kind, name")
	if err != nil {
		return nil, fmt.Errorf("list show names: %w", err)
	}
	defer rows.Close()

	byShow := make(map[int64][]ShowName)
	for rows.Next() {
		var name ShowName
		var kind int
		if err := rows.Scan(&name.ID, &name.ShowID, &kind, &name.Name); err != nil {
			return nil, fmt.Errorf("scan show name: %w", err)
		}
		name.Kind = NameKind(kind)
		byShow[name.ShowID] = append(byShow[name.ShowID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]ShowWithNames, 0, len(shows))
	for _, show := range shows {
		result = append(result, ShowWithNames{Show: show, Names: byShow[show.ID]})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Show.ID < result[j].Show.ID })
	return result, nil
}

// NamesByShow returns the names of one show.
func (s *Store) NamesByShow(ctx context.Context, showID int64) ([]ShowName, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, show_id, kind, name FROM show_name WHERE show_id = ? ORDER BY kind, name", showID)
	if err != nil {
		return nil, fmt.Errorf("list names for show %d: %w", showID, err)
	}
	defer rows.Close()

	var names []ShowName
	for rows.Next() {
		var name ShowName
		var kind int
		if err := rows.Scan(&name.ID, &name.ShowID, &kind, &name.Name); err != nil {
			return nil, fmt.Errorf("scan show name: %w", err)
		}
		name.Kind = NameKind(kind)
		names = append(names, name)
	}
	return names, rows.Err()
}

// SyncSchedule replaces the schedule rows in [from, to) with entries. Rows
// outside the window are untouched, so old airings survive the rolling sync.
func (s *Store) SyncSchedule(ctx context.Context, from, to time.Time, entries []ScheduleEntry) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schedule WHERE airs_at >= ? AND airs_at < ?",
		formatTime(from), formatTime(to),
	); err != nil {
		return fmt.Errorf("clear schedule window: %w", err)
	}

	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule (show_id, episode, airs_at) VALUES (?, ?, ?)
             ON CONFLICT (show_id, episode) DO UPDATE SET airs_at = excluded.airs_at`,
			entry.ShowID, entry.Episode, formatTime(entry.AirsAt),
		); err != nil {
			return fmt.Errorf("insert schedule entry show=%d ep=%d: %w", entry.ShowID, entry.Episode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule sync: %w", err)
	}
	return nil
}

// ScheduleWindow returns schedule entries airing in [from, to) ordered by air
// time.
func (s *Store) ScheduleWindow(ctx context.Context, from, to time.Time) ([]ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, show_id, episode, airs_at FROM schedule
         WHERE airs_at >= ? AND airs_at < ? ORDER BY airs_at, show_id`,
		formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("list schedule window: %w", err)
	}
	defer rows.Close()

	var entries []ScheduleEntry
	for rows.Next() {
		var entry ScheduleEntry
		var airsAt string
		if err := rows.Scan(&entry.ID, &entry.ShowID, &entry.Episode, &airsAt); err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		if entry.AirsAt, err = parseTime(airsAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(row rowScanner) (*Show, error) {
	var show Show
	var format int
	var season sql.NullInt64
	if err := row.Scan(&show.ID, &show.CatalogID, &format, &season); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan show: %w", err)
	}
	show.Format = Format(format)
	if season.Valid {
		ys, err := DecodeYearSeason(int(season.Int64))
		if err != nil {
			return nil, fmt.Errorf("show %d: %w", show.ID, err)
		}
		show.Season = &ys
	}
	return &show, nil
}
