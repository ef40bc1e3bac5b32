package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tosho/internal/config"
	"tosho/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// NewShow inserts a show with a primary name and returns its id.
func NewShow(t testing.TB, s *store.Store, catalogID int64, romaji string) int64 {
	t.Helper()

	id, err := s.UpsertCatalogShow(context.Background(), store.CatalogShow{
		CatalogID: catalogID,
		Format:    store.FormatTV,
		Romaji:    romaji,
	})
	if err != nil {
		t.Fatalf("store.UpsertCatalogShow: %v", err)
	}
	return id
}

// NewTorrentRecord builds a feed record with deterministic fields derived
// from the feed id.
func NewTorrentRecord(feedID int64, title string, showID *int64) store.TorrentRecord {
	return store.TorrentRecord{
		FeedID:     feedID,
		Hash:       fmt.Sprintf("%040x", feedID),
		HashKind:   store.HashSHA1,
		UploadedAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(feedID) * time.Minute),
		Title:      title,
		Size:       1 << 30,
		ShowID:     showID,
	}
}
