package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/skimreader/skim/internal/config"
	"github.com/skimreader/skim/internal/debuglog"
	"github.com/skimreader/skim/internal/storage"
	"github.com/skimreader/skim/internal/task"
)

// FeedRefreshed is the per-feed outcome event. Exactly one is emitted for
// every feed that actually ran; Err is nil on success.
type FeedRefreshed struct {
	FeedID   string
	Title    string
	Added    int
	Articles []*storage.Article
	Err      *FetchError
}

// RefreshProgress reports batch progress as feeds complete, in arrival
// order. Total counts only the feeds that actually launched, so Done
// reaches Total even when part of the batch was skipped.
type RefreshProgress struct {
	Done  int
	Total int
}

// RefreshComplete is the aggregate event emitted when the last outstanding
// task of a batch resolves. Skipped counts feeds that were already in
// flight when the batch started.
type RefreshComplete struct {
	Succeeded int
	Failed    int
	Skipped   int
	Added     int
}

// Coordinator fans a refresh batch out over a bounded slot pool and funnels
// per-feed outcomes into the task pool's event channel. One feed failing
// never blocks or aborts the others.
type Coordinator struct {
	store   *storage.Store
	fetcher *Fetcher
	parser  *Parser
	pool    *task.Pool
	timeout time.Duration
	slots   chan struct{}

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewCoordinator(store *storage.Store, cfg *config.Config, pool *task.Pool) *Coordinator {
	maxConcurrent := cfg.Feed.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultMaxConcurrent
	}
	return &Coordinator{
		store:    store,
		fetcher:  NewFetcher(cfg),
		parser:   NewParser(),
		pool:     pool,
		timeout:  cfg.Feed.HTTPTimeout,
		slots:    make(chan struct{}, maxConcurrent),
		inflight: make(map[string]struct{}),
	}
}

// Refresh launches one fetch task per feed and returns immediately. Feeds
// already in flight (a concurrent manual or auto refresh) are skipped so
// two refreshes of the same feed never both commit.
func (c *Coordinator) Refresh(feeds []*storage.Feed) {
	batch := &batchTally{}

	// Claim the in-flight guards up front so every progress event carries
	// the final launched count.
	var run []*storage.Feed
	for _, f := range feeds {
		if !c.acquire(f.ID) {
			batch.skip()
			debuglog.Debug("refresh: skipping %s, already in flight", f.ID)
			continue
		}
		run = append(run, f)
	}

	total := len(run)
	var wg sync.WaitGroup
	for _, f := range run {
		wg.Add(1)
		feed := f
		c.pool.Go("refresh:"+feed.ID, func() any {
			defer wg.Done()
			defer c.release(feed.ID)

			// Queue for a free slot; at most cap(c.slots) fetches run at once.
			c.slots <- struct{}{}
			defer func() { <-c.slots }()

			ev := c.refreshOne(feed)
			if ev.Err != nil {
				batch.fail()
			} else {
				batch.ok(ev.Added)
			}
			c.pool.Emit(RefreshProgress{Done: batch.done(), Total: total})
			return ev
		})
	}

	go func() {
		wg.Wait()
		c.pool.Emit(batch.complete())
	}()
}

// InFlight reports whether a refresh of the given feed is currently running.
func (c *Coordinator) InFlight(feedID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[feedID]
	return ok
}

func (c *Coordinator) acquire(feedID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[feedID]; ok {
		return false
	}
	c.inflight[feedID] = struct{}{}
	return true
}

func (c *Coordinator) release(feedID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, feedID)
}

// refreshOne runs the full fetch→parse→upsert pipeline for a single feed.
// Every failure is recorded on the feed and returned as a typed event;
// nothing propagates past the task boundary.
func (c *Coordinator) refreshOne(f *storage.Feed) FeedRefreshed {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	result := FeedRefreshed{FeedID: f.ID, Title: f.Title}

	raw, err := c.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		return c.fail(result, err)
	}

	parsed, err := c.parser.Parse(raw, f.ID)
	if err != nil {
		return c.fail(result, err)
	}

	if parsed.Title != "" && (f.Title == "" || f.Title == f.URL) {
		f.Title = parsed.Title
		result.Title = parsed.Title
	}
	if parsed.SiteURL != "" && f.SiteURL == "" {
		f.SiteURL = parsed.SiteURL
	}
	if err := c.store.UpsertFeed(f); err != nil {
		return c.fail(result, newFetchError(ErrStorage, err))
	}

	added, err := c.store.UpsertArticles(f.ID, parsed.Articles)
	if err != nil {
		return c.fail(result, newFetchError(ErrStorage, err))
	}

	if err := c.store.SetFeedStatus(f.ID, time.Now(), ""); err != nil {
		debuglog.Warn("refresh: recording success for %s: %v", f.ID, err)
	}

	result.Added = added
	result.Articles, _ = c.store.ListArticles(f.ID, storage.FilterAll, 0)
	return result
}

func (c *Coordinator) fail(result FeedRefreshed, err error) FeedRefreshed {
	var fe *FetchError
	if !errors.As(err, &fe) {
		fe = newFetchError(ErrNetwork, err)
	}
	result.Err = fe
	if statusErr := c.store.SetFeedStatus(result.FeedID, time.Now(), fe.Error()); statusErr != nil {
		debuglog.Warn("refresh: recording error for %s: %v", result.FeedID, statusErr)
	}
	return result
}

// batchTally aggregates a batch's outcome across racing tasks.
type batchTally struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	skipped   int
	added     int
}

func (b *batchTally) ok(added int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.succeeded++
	b.added += added
}

func (b *batchTally) fail() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed++
}

func (b *batchTally) skip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.skipped++
}

func (b *batchTally) done() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.succeeded + b.failed
}

func (b *batchTally) complete() RefreshComplete {
	b.mu.Lock()
	defer b.mu.Unlock()
	return RefreshComplete{
		Succeeded: b.succeeded,
		Failed:    b.failed,
		Skipped:   b.skipped,
		Added:     b.added,
	}
}
