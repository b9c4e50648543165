package integration

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skimreader/skim/internal/config"
	"github.com/skimreader/skim/internal/feed"
	"github.com/skimreader/skim/internal/opml"
	"github.com/skimreader/skim/internal/search"
	"github.com/skimreader/skim/internal/storage"
	"github.com/skimreader/skim/internal/task"
)

// newFeedServer serves RSS documents under /feeds/<name> and hangs on any
// path containing "slow".
func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "slow") {
			time.Sleep(3 * time.Second)
			return
		}
		name := filepath.Base(r.URL.Path)
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Feed %s</title>
<link>http://example.com/%s</link>
<item><title>%s one</title><link>http://example.com/%s/1</link><description>first</description></item>
<item><title>%s two</title><link>http://example.com/%s/2</link><description>second</description></item>
</channel></rss>`, name, name, name, name, name, name)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRefreshAllEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	server := newFeedServer(t)

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "skim.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	engine, err := search.NewEngine("")
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	cfg := config.TestConfig()
	cfg.Feed.HTTPTimeout = 500 * time.Millisecond

	pool := task.NewPool(64)
	coord := feed.NewCoordinator(store, cfg, pool)

	// Subscribe to 10 healthy feeds and 2 that will time out.
	var feeds []*storage.Feed
	for i := 0; i < 10; i++ {
		url := fmt.Sprintf("%s/feeds/ok-%d", server.URL, i)
		f := &storage.Feed{ID: storage.FeedID(url), URL: url, CreatedAt: time.Now()}
		if err := store.UpsertFeed(f); err != nil {
			t.Fatal(err)
		}
		feeds = append(feeds, f)
	}
	for i := 0; i < 2; i++ {
		url := fmt.Sprintf("%s/feeds/slow-%d", server.URL, i)
		f := &storage.Feed{ID: storage.FeedID(url), URL: url, CreatedAt: time.Now()}
		if err := store.UpsertFeed(f); err != nil {
			t.Fatal(err)
		}
		feeds = append(feeds, f)
	}

	coord.Refresh(feeds)

	var perFeed []feed.FeedRefreshed
	var complete feed.RefreshComplete
	deadline := time.After(30 * time.Second)
drain:
	for {
		select {
		case ev := <-pool.Events():
			switch ev := ev.(type) {
			case feed.FeedRefreshed:
				perFeed = append(perFeed, ev)
				if ev.Err == nil {
					if err := engine.Index(ev.Articles); err != nil {
						t.Fatal(err)
					}
				}
			case feed.RefreshComplete:
				complete = ev
				break drain
			case task.Crashed:
				t.Fatalf("task crashed: %v", ev.Err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for refresh batch")
		}
	}

	if complete.Succeeded != 10 {
		t.Errorf("expected 10 succeeded, got %d", complete.Succeeded)
	}
	if complete.Failed != 2 {
		t.Errorf("expected 2 failed, got %d", complete.Failed)
	}
	if complete.Added != 20 {
		t.Errorf("expected 20 articles added, got %d", complete.Added)
	}
	if len(perFeed) != 12 {
		t.Errorf("expected 12 per-feed events, got %d", len(perFeed))
	}

	// Healthy feeds carry their parsed titles and articles.
	stored, err := store.ListFeeds()
	if err != nil {
		t.Fatal(err)
	}
	okFeeds, erroredFeeds := 0, 0
	for _, f := range stored {
		if f.LastError != "" {
			erroredFeeds++
			continue
		}
		okFeeds++
		if !strings.HasPrefix(f.Title, "Feed ok-") {
			t.Errorf("feed %s: title not updated from parse: %q", f.URL, f.Title)
		}
		articles, err := store.ListArticles(f.ID, storage.FilterAll, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(articles) != 2 {
			t.Errorf("feed %s: expected 2 articles, got %d", f.URL, len(articles))
		}
	}
	if okFeeds != 10 || erroredFeeds != 2 {
		t.Errorf("expected 10 healthy and 2 errored feeds, got %d and %d", okFeeds, erroredFeeds)
	}

	// Refreshing again adds nothing new.
	coord.Refresh(feeds)
	deadline = time.After(30 * time.Second)
	for {
		done := false
		select {
		case ev := <-pool.Events():
			if c, ok := ev.(feed.RefreshComplete); ok {
				if c.Added != 0 {
					t.Errorf("second refresh added %d articles, expected 0", c.Added)
				}
				done = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for second batch")
		}
		if done {
			break
		}
	}

	// The index covers everything the refresh ingested.
	count, err := engine.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 20 {
		t.Errorf("expected 20 indexed articles, got %d", count)
	}
	hits, err := engine.Search("first", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Error("expected search hits for ingested articles")
	}

	// An OPML export reflects the live subscription set.
	tree, err := opml.Export(store)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Feeds) != 12 {
		t.Errorf("expected 12 exported feeds, got %d", len(tree.Feeds))
	}
}
