package state

import (
	"encoding/json"
	"fmt"
	"time"

	"tosho/internal/store"
)

// Interesting reports whether a key transition should wake watchers.
//
// Forward progress is the steady state and stays silent. The wake-worthy
// transitions are the ones an operator forces by hand: lowering the feed
// watermark to re-ingest a range, bumping the rematch counter, or rewinding a
// sync timestamp to force a refresh.
func Interesting(key, oldRaw, newRaw string) (bool, error) {
	if oldRaw == newRaw {
		return false, nil
	}
	switch key {
	case store.KeyMaxFeedID:
		oldV, newV, err := parseIntPair(key, oldRaw, newRaw)
		if err != nil {
			return false, err
		}
		return newV < oldV, nil
	case store.KeyRematchRequest:
		oldV, newV, err := parseIntPair(key, oldRaw, newRaw)
		if err != nil {
			return false, err
		}
		return newV > oldV, nil
	case store.KeyLastCatalogSync, store.KeyLastScheduleSync:
		oldV, newV, err := parseTimePair(key, oldRaw, newRaw)
		if err != nil {
			return false, err
		}
		return newV.Before(oldV), nil
	case store.KeyInitialSetup:
		return false, nil
	default:
		return false, fmt.Errorf("unknown state key %q", key)
	}
}

func parseIntPair(key, oldRaw, newRaw string) (int64, int64, error) {
	var oldV, newV int64
	if err := json.Unmarshal([]byte(oldRaw), &oldV); err != nil {
		return 0, 0, fmt.Errorf("state %s: old value %q: %w", key, oldRaw, err)
	}
	if err := json.Unmarshal([]byte(newRaw), &newV); err != nil {
		return 0, 0, fmt.Errorf("state %s: new value %q: %w", key, newRaw, err)
	}
	return oldV, newV, nil
}

func parseTimePair(key, oldRaw, newRaw string) (time.Time, time.Time, error) {
	var oldV, newV time.Time
	if err := json.Unmarshal([]byte(oldRaw), &oldV); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("state %s: old value %q: %w", key, oldRaw, err)
	}
	if err := json.Unmarshal([]byte(newRaw), &newV); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("state %s: new value %q: %w", key, newRaw, err)
	}
	return oldV, newV, nil
}
