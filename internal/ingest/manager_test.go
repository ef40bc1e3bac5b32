package ingest_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tosho/internal/anilist"
	"tosho/internal/config"
	"tosho/internal/ingest"
	"tosho/internal/nyaa"
	"tosho/internal/services"
	"tosho/internal/state"
	"tosho/internal/store"
	"tosho/internal/testsupport"
)

type fakeFeed struct {
	mu       sync.Mutex
	pages    map[int][]nyaa.Record
	pageErrs map[int]error
	calls    []int
	err      error
}

func (f *fakeFeed) FetchPage(ctx context.Context, page int) ([]nyaa.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, page)
	if f.err != nil {
		return nil, f.err
	}
	if err := f.pageErrs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeFeed) pagesFetched() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

type fakeCatalog struct {
	shows   []store.CatalogShow
	airings []anilist.Airing
}

func (f *fakeCatalog) Shows(ctx context.Context, fn func(store.CatalogShow) error) error {
	for _, s := range f.shows {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCatalog) Schedule(ctx context.Context, start, stop time.Time) ([]anilist.Airing, error) {
	return f.airings, nil
}

func record(feedID int64, title string) nyaa.Record {
	return nyaa.Record{
		FeedID:     feedID,
		Hash:       testsupport.NewTorrentRecord(feedID, title, nil).Hash,
		UploadedAt: time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC),
		Title:      title,
		Size:       1 << 28,
	}
}

func newTestManager(t *testing.T, feed ingest.FeedClient, catalog ingest.CatalogClient) (*ingest.Manager, *store.Store, *state.Tracker, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Catalog.StartupGrace = 0
	cfg.Feed.MaxBackfillPages = 5
	s := testsupport.MustOpenStore(t, cfg)
	tracker, err := state.NewTracker(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return ingest.NewManager(cfg, s, tracker, feed, catalog, nil), s, tracker, cfg
}

func TestCycleInitialSetup(t *testing.T) {
	feed := &fakeFeed{pages: map[int][]nyaa.Record{
		1: {record(20, "[Group] Yuru Camp - 02")},
		2: {record(19, "[Group] Unrelated Stuff - 01")},
	}}
	catalog := &fakeCatalog{
		shows: []store.CatalogShow{{CatalogID: 101, Format: store.FormatTV, Romaji: "Yuru Camp"}},
		airings: []anilist.Airing{
			{CatalogID: 101, Episode: 3, AiringAt: time.Date(2026, time.August, 27, 12, 0, 0, 0, time.UTC)},
			{CatalogID: 555, Episode: 1, AiringAt: time.Date(2026, time.August, 27, 13, 0, 0, 0, time.UTC)},
		},
	}
	m, s, _, _ := newTestManager(t, feed, catalog)
	ctx := context.Background()

	m.Cycle(ctx)

	maxID, err := s.MaxFeedID(ctx)
	if err != nil {
		t.Fatalf("MaxFeedID: %v", err)
	}
	if maxID != 20 {
		t.Fatalf("watermark = %d, want 20", maxID)
	}

	setup, err := s.InitialSetup(ctx)
	if err != nil {
		t.Fatalf("InitialSetup: %v", err)
	}
	if setup {
		t.Fatal("initial setup flag not cleared after full cycle")
	}

	show, err := s.ShowByCatalogID(ctx, 101)
	if err != nil || show == nil {
		t.Fatalf("ShowByCatalogID: %v %v", show, err)
	}
	matched, err := s.TorrentsByShow(ctx, show.ID)
	if err != nil {
		t.Fatalf("TorrentsByShow: %v", err)
	}
	if len(matched) != 1 || matched[0].FeedID != 20 {
		t.Fatalf("matched torrents = %+v", matched)
	}

	unmatched, err := s.UnmatchedTorrents(ctx)
	if err != nil {
		t.Fatalf("UnmatchedTorrents: %v", err)
	}
	if len(unmatched) != 1 || unmatched[0].FeedID != 19 {
		t.Fatalf("unmatched torrents = %+v", unmatched)
	}

	// Airings for unknown catalog ids are dropped.
	window, err := s.ScheduleWindow(ctx, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ScheduleWindow: %v", err)
	}
	if len(window) != 1 || window[0].ShowID != show.ID || window[0].Episode != 3 {
		t.Fatalf("schedule window = %+v", window)
	}
}

func TestCycleIncrementalStopsAtWatermark(t *testing.T) {
	feed := &fakeFeed{pages: map[int][]nyaa.Record{
		1: {record(22, "[Group] New - 02"), record(21, "[Group] New - 01"), record(20, "[Group] Old - 05")},
		2: {record(19, "[Group] Much Older - 01")},
	}}
	m, s, _, _ := newTestManager(t, feed, &fakeCatalog{})
	ctx := context.Background()

	if err := s.SetInitialSetup(ctx, false); err != nil {
		t.Fatalf("SetInitialSetup: %v", err)
	}
	if _, err := s.CommitPoll(ctx, []store.TorrentRecord{testsupport.NewTorrentRecord(20, "[Group] Old - 05", nil)}, 20); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m.Cycle(ctx)

	pages := feed.pagesFetched()
	if len(pages) != 1 || pages[0] != 1 {
		t.Fatalf("pages fetched = %v, want just page 1", pages)
	}

	recent, err := s.RecentTorrents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentTorrents: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("torrents = %d, want the two new plus the seeded one", len(recent))
	}
	maxID, err := s.MaxFeedID(ctx)
	if err != nil {
		t.Fatalf("MaxFeedID: %v", err)
	}
	if maxID != 22 {
		t.Fatalf("watermark = %d, want 22", maxID)
	}
}

func TestRematchRunsOnRequest(t *testing.T) {
	feed := &fakeFeed{pages: map[int][]nyaa.Record{}}
	m, s, tracker, _ := newTestManager(t, feed, &fakeCatalog{})
	ctx := context.Background()

	if err := s.SetInitialSetup(ctx, false); err != nil {
		t.Fatalf("SetInitialSetup: %v", err)
	}
	if _, err := s.CommitPoll(ctx, []store.TorrentRecord{
		testsupport.NewTorrentRecord(10, "[Group] Bocchi the Rock! - 01", nil),
	}, 10); err != nil {
		t.Fatalf("seed torrent: %v", err)
	}

	// First cycle runs the startup pass; no names exist, nothing matches.
	m.Cycle(ctx)
	unmatched, err := s.UnmatchedTorrents(ctx)
	if err != nil || len(unmatched) != 1 {
		t.Fatalf("unmatched = %v (%v)", unmatched, err)
	}

	showID := testsupport.NewShow(t, s, 101, "Bocchi the Rock!")
	// Without a new request the backlog stays put.
	m.Cycle(ctx)
	unmatched, err = s.UnmatchedTorrents(ctx)
	if err != nil || len(unmatched) != 1 {
		t.Fatalf("unmatched after silent cycle = %v (%v)", unmatched, err)
	}

	if _, err := tracker.RequestRematch(ctx); err != nil {
		t.Fatalf("RequestRematch: %v", err)
	}
	m.Cycle(ctx)

	matched, err := s.TorrentsByShow(ctx, showID)
	if err != nil {
		t.Fatalf("TorrentsByShow: %v", err)
	}
	if len(matched) != 1 {
		t.Fatalf("rematch did not relate the torrent: %+v", matched)
	}
}

func TestPollSkipsMalformedPage(t *testing.T) {
	feed := &fakeFeed{
		pages: map[int][]nyaa.Record{
			1: {record(22, "[Group] New - 02"), record(21, "[Group] New - 01")},
			3: {record(19, "[Group] Much Older - 01")},
		},
		pageErrs: map[int]error{
			2: services.Wrap(services.ErrParse, "nyaa", "parse", "page 2", errors.New("bad xml")),
		},
	}
	m, s, _, _ := newTestManager(t, feed, &fakeCatalog{})
	ctx := context.Background()

	if err := s.SetInitialSetup(ctx, false); err != nil {
		t.Fatalf("SetInitialSetup: %v", err)
	}
	if _, err := s.CommitPoll(ctx, []store.TorrentRecord{testsupport.NewTorrentRecord(20, "[Group] Old - 05", nil)}, 20); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m.Cycle(ctx)

	// The bad page is skipped and the walk continues to the stop condition.
	pages := feed.pagesFetched()
	if len(pages) != 3 {
		t.Fatalf("pages fetched = %v, want 1 through 3", pages)
	}
	recent, err := s.RecentTorrents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentTorrents: %v", err)
	}
	if len(recent) != 4 {
		t.Fatalf("torrents = %d, want the good pages' records to survive the bad page", len(recent))
	}
	maxID, err := s.MaxFeedID(ctx)
	if err != nil {
		t.Fatalf("MaxFeedID: %v", err)
	}
	if maxID != 22 {
		t.Fatalf("watermark = %d, want 22", maxID)
	}
}

func TestBackfillSkipsMalformedPage(t *testing.T) {
	feed := &fakeFeed{
		pages: map[int][]nyaa.Record{
			1: {record(30, "[Group] Yuru Camp - 03")},
			3: {record(12, "[Group] Older Stuff - 01")},
		},
		pageErrs: map[int]error{
			2: services.Wrap(services.ErrParse, "nyaa", "parse", "page 2", errors.New("truncated rss")),
		},
	}
	m, s, _, _ := newTestManager(t, feed, &fakeCatalog{})
	ctx := context.Background()

	m.Cycle(ctx)

	recent, err := s.RecentTorrents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentTorrents: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("torrents = %d, want both good pages persisted", len(recent))
	}
	maxID, err := s.MaxFeedID(ctx)
	if err != nil {
		t.Fatalf("MaxFeedID: %v", err)
	}
	if maxID != 30 {
		t.Fatalf("watermark = %d, want 30", maxID)
	}

	// One bad page is bounded loss, not a failed first run.
	setup, err := s.InitialSetup(ctx)
	if err != nil {
		t.Fatalf("InitialSetup: %v", err)
	}
	if setup {
		t.Fatal("initial setup flag not cleared after backfill with a malformed page")
	}
}

func TestCycleSurvivesFeedFailure(t *testing.T) {
	feed := &fakeFeed{err: errors.New("tracker down")}
	catalog := &fakeCatalog{
		shows: []store.CatalogShow{{CatalogID: 101, Format: store.FormatTV, Romaji: "Yuru Camp"}},
	}
	m, s, _, _ := newTestManager(t, feed, catalog)
	ctx := context.Background()

	m.Cycle(ctx)

	// The feed failed but the catalog sync still happened.
	show, err := s.ShowByCatalogID(ctx, 101)
	if err != nil {
		t.Fatalf("ShowByCatalogID: %v", err)
	}
	if show == nil {
		t.Fatal("catalog sync skipped after feed failure")
	}

	// A failed poll keeps the first-run flag so the next cycle backfills.
	setup, err := s.InitialSetup(ctx)
	if err != nil {
		t.Fatalf("InitialSetup: %v", err)
	}
	if !setup {
		t.Fatal("initial setup flag cleared despite failed poll")
	}
}

func TestStartStop(t *testing.T) {
	feed := &fakeFeed{pages: map[int][]nyaa.Record{}}
	m, _, _, _ := newTestManager(t, feed, &fakeCatalog{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}
	m.Stop()

	// Stop after stop is a no-op.
	m.Stop()
}
