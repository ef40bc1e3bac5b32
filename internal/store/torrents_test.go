package store_test

import (
	"context"
	"testing"

	"tosho/internal/store"
	"tosho/internal/testsupport"
)

func TestCommitPollInsertsAndAdvances(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	showID := testsupport.NewShow(t, s, 101, "Some Show")

	records := []store.TorrentRecord{
		testsupport.NewTorrentRecord(10, "[Group] Some Show - 01", &showID),
		testsupport.NewTorrentRecord(11, "[Group] Unrelated - 01", nil),
	}
	inserted, err := s.CommitPoll(ctx, records, 11)
	if err != nil {
		t.Fatalf("CommitPoll: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("inserted = %d, want 2", inserted)
	}

	maxID, err := s.MaxFeedID(ctx)
	if err != nil {
		t.Fatalf("MaxFeedID: %v", err)
	}
	if maxID != 11 {
		t.Fatalf("watermark = %d, want 11", maxID)
	}

	matched, err := s.TorrentsByShow(ctx, showID)
	if err != nil {
		t.Fatalf("TorrentsByShow: %v", err)
	}
	if len(matched) != 1 || matched[0].FeedID != 10 {
		t.Fatalf("matched torrents = %+v", matched)
	}
	if !matched[0].Matched {
		t.Fatal("related torrent not flagged matched")
	}

	unmatched, err := s.UnmatchedTorrents(ctx)
	if err != nil {
		t.Fatalf("UnmatchedTorrents: %v", err)
	}
	if len(unmatched) != 1 || unmatched[0].FeedID != 11 {
		t.Fatalf("unmatched torrents = %+v", unmatched)
	}
}

func TestCommitPollReplayIsIdempotent(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	showID := testsupport.NewShow(t, s, 101, "Some Show")

	records := []store.TorrentRecord{
		testsupport.NewTorrentRecord(10, "[Group] Some Show - 01", &showID),
	}
	if _, err := s.CommitPoll(ctx, records, 10); err != nil {
		t.Fatalf("first CommitPoll: %v", err)
	}

	// A crash before the watermark write would make the next cycle refetch
	// the same records, possibly with a different classification.
	otherID := testsupport.NewShow(t, s, 102, "Other Show")
	replay := []store.TorrentRecord{
		testsupport.NewTorrentRecord(10, "[Group] Some Show - 01", &otherID),
		testsupport.NewTorrentRecord(11, "[Group] Some Show - 02", &showID),
	}
	inserted, err := s.CommitPoll(ctx, replay, 11)
	if err != nil {
		t.Fatalf("replay CommitPoll: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("replay inserted = %d, want 1", inserted)
	}

	rel, err := s.TorrentShow(ctx, 1)
	if err != nil {
		t.Fatalf("TorrentShow: %v", err)
	}
	if rel == nil || *rel != showID {
		t.Fatalf("replay reclassified existing torrent: %v", rel)
	}
}

func TestCommitPollNeverLowersWatermark(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := s.CommitPoll(ctx, nil, 20); err != nil {
		t.Fatalf("CommitPoll: %v", err)
	}
	if _, err := s.CommitPoll(ctx, nil, 15); err != nil {
		t.Fatalf("CommitPoll with stale watermark: %v", err)
	}
	maxID, err := s.MaxFeedID(ctx)
	if err != nil {
		t.Fatalf("MaxFeedID: %v", err)
	}
	if maxID != 20 {
		t.Fatalf("watermark = %d, want 20", maxID)
	}
}

func TestApplyRematchReplacesRelations(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	showA := testsupport.NewShow(t, s, 101, "Show A")
	showB := testsupport.NewShow(t, s, 102, "Show B")

	records := []store.TorrentRecord{
		testsupport.NewTorrentRecord(10, "[Group] Show A - 01", &showA),
		testsupport.NewTorrentRecord(11, "[Group] Mystery - 01", nil),
	}
	if _, err := s.CommitPoll(ctx, records, 11); err != nil {
		t.Fatalf("CommitPoll: %v", err)
	}

	// Move torrent 1 from A to B, match torrent 2 to A.
	matched, err := s.ApplyRematch(ctx, map[int64]*int64{
		1: &showB,
		2: &showA,
	})
	if err != nil {
		t.Fatalf("ApplyRematch: %v", err)
	}
	if matched != 2 {
		t.Fatalf("matched = %d, want 2", matched)
	}

	rel, err := s.TorrentShow(ctx, 1)
	if err != nil {
		t.Fatalf("TorrentShow: %v", err)
	}
	if rel == nil || *rel != showB {
		t.Fatalf("torrent 1 relation = %v, want show B", rel)
	}

	// Unmatch torrent 2 again.
	if _, err := s.ApplyRematch(ctx, map[int64]*int64{2: nil}); err != nil {
		t.Fatalf("second ApplyRematch: %v", err)
	}
	unmatched, err := s.UnmatchedTorrents(ctx)
	if err != nil {
		t.Fatalf("UnmatchedTorrents: %v", err)
	}
	if len(unmatched) != 1 || unmatched[0].ID != 2 {
		t.Fatalf("unmatched = %+v", unmatched)
	}
}

func TestTorrentHashesBetween(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	records := []store.TorrentRecord{
		testsupport.NewTorrentRecord(10, "a", nil),
		testsupport.NewTorrentRecord(11, "b", nil),
		testsupport.NewTorrentRecord(12, "c", nil),
	}
	if _, err := s.CommitPoll(ctx, records, 12); err != nil {
		t.Fatalf("CommitPoll: %v", err)
	}

	hashes, err := s.TorrentHashesBetween(ctx, 10, 12)
	if err != nil {
		t.Fatalf("TorrentHashesBetween: %v", err)
	}
	if len(hashes) != 2 {
		t.Fatalf("hashes = %v, want feed ids 11 and 12", hashes)
	}
	for feedID := range hashes {
		if feedID != 11 && feedID != 12 {
			t.Fatalf("unexpected feed id %d in interval", feedID)
		}
	}
}
