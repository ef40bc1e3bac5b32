package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// State keys. Values are stored as JSON so each key keeps its natural type.
const (
	KeyMaxFeedID        = "max_feed_id"
	KeyRematchRequest   = "rematch_request"
	KeyLastCatalogSync  = "last_catalog_sync"
	KeyLastScheduleSync = "last_schedule_sync"
	KeyInitialSetup     = "initial_setup"
)

// StateKeys lists every key in the state table.
var StateKeys = []string{
	KeyMaxFeedID,
	KeyRematchRequest,
	KeyLastCatalogSync,
	KeyLastScheduleSync,
	KeyInitialSetup,
}

// GetRawState returns the JSON value of one state key.
func (s *Store) GetRawState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("unknown state key %q", key)
	}
	if err != nil {
		return "", fmt.Errorf("read state %s: %w", key, err)
	}
	return value, nil
}

// SetRawState overwrites one state key with a JSON value. The value must be
// valid JSON; the typed setters are preferred.
func (s *Store) SetRawState(ctx context.Context, key, value string) error {
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("state %s: value %q is not valid JSON", key, value)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE state SET value = ? WHERE key = ?", value, key)
	if err != nil {
		return fmt.Errorf("write state %s: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write state %s: %w", key, err)
	}
	if affected == 0 {
		return fmt.Errorf("unknown state key %q", key)
	}
	return nil
}

// AllState returns every state key with its raw JSON value.
func (s *Store) AllState(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM state")
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	defer rows.Close()

	state := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan state row: %w", err)
		}
		state[key] = value
	}
	return state, rows.Err()
}

func (s *Store) stateInt64(ctx context.Context, key string) (int64, error) {
	raw, err := s.GetRawState(ctx, key)
	if err != nil {
		return 0, err
	}
	var v int64
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return 0, fmt.Errorf("state %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) setStateInt64(ctx context.Context, key string, v int64) error {
	return s.SetRawState(ctx, key, fmt.Sprintf("%d", v))
}

func (s *Store) stateTime(ctx context.Context, key string) (time.Time, error) {
	raw, err := s.GetRawState(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	var v time.Time
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return time.Time{}, fmt.Errorf("state %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) setStateTime(ctx context.Context, key string, v time.Time) error {
	data, err := json.Marshal(v.UTC())
	if err != nil {
		return fmt.Errorf("state %s: %w", key, err)
	}
	return s.SetRawState(ctx, key, string(data))
}

// MaxFeedID returns the ingestion watermark: the highest feed id known to be
// fully persisted.
func (s *Store) MaxFeedID(ctx context.Context) (int64, error) {
	return s.stateInt64(ctx, KeyMaxFeedID)
}

// SetMaxFeedID overwrites the ingestion watermark. Setting a lower value is
// legal and forces re-ingestion of the gap.
func (s *Store) SetMaxFeedID(ctx context.Context, v int64) error {
	return s.setStateInt64(ctx, KeyMaxFeedID, v)
}

// RematchRequest returns the rematch request counter.
func (s *Store) RematchRequest(ctx context.Context) (int64, error) {
	return s.stateInt64(ctx, KeyRematchRequest)
}

// SetRematchRequest overwrites the rematch request counter.
func (s *Store) SetRematchRequest(ctx context.Context, v int64) error {
	return s.setStateInt64(ctx, KeyRematchRequest, v)
}

// LastCatalogSync returns the completion time of the last full catalog sync.
func (s *Store) LastCatalogSync(ctx context.Context) (time.Time, error) {
	return s.stateTime(ctx, KeyLastCatalogSync)
}

// SetLastCatalogSync records the completion time of a catalog sync.
func (s *Store) SetLastCatalogSync(ctx context.Context, v time.Time) error {
	return s.setStateTime(ctx, KeyLastCatalogSync, v)
}

// LastScheduleSync returns the completion time of the last schedule sync.
func (s *Store) LastScheduleSync(ctx context.Context) (time.Time, error) {
	return s.stateTime(ctx, KeyLastScheduleSync)
}

// SetLastScheduleSync records the completion time of a schedule sync.
func (s *Store) SetLastScheduleSync(ctx context.Context, v time.Time) error {
	return s.setStateTime(ctx, KeyLastScheduleSync, v)
}

// InitialSetup reports whether the database has never completed a first full
// sync cycle.
func (s *Store) InitialSetup(ctx context.Context) (bool, error) {
	raw, err := s.GetRawState(ctx, KeyInitialSetup)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return false, fmt.Errorf("state %s: %w", KeyInitialSetup, err)
	}
	return v, nil
}

// SetInitialSetup overwrites the initial setup flag.
func (s *Store) SetInitialSetup(ctx context.Context, v bool) error {
	data, _ := json.Marshal(v)
	return s.SetRawState(ctx, KeyInitialSetup, string(data))
}

// setStateMaxTx advances an integer state key inside tx, never lowering it.
func setStateMaxTx(ctx context.Context, tx *sql.Tx, key string, v int64) error {
	var raw string
	if err := tx.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&raw); err != nil {
		return fmt.Errorf("read state %s: %w", key, err)
	}
	var current int64
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		return fmt.Errorf("state %s: %w", key, err)
	}
	if v <= current {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE state SET value = ? WHERE key = ?", fmt.Sprintf("%d", v), key); err != nil {
		return fmt.Errorf("advance state %s: %w", key, err)
	}
	return nil
}
