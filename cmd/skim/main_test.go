package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skimreader/skim/internal/storage"
)

func setupStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "skim.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunImportExport(t *testing.T) {
	store := setupStore(t)
	dir := t.TempDir()

	inPath := filepath.Join(dir, "subs.opml")
	sample := `<?xml version="1.0"?>
<opml version="2.0">
  <body>
    <outline text="Tech">
      <outline text="Go Blog" type="rss" xmlUrl="https://go.dev/blog/feed.atom"/>
    </outline>
    <outline text="Loose" type="rss" xmlUrl="https://example.com/feed.xml"/>
  </body>
</opml>`
	if err := os.WriteFile(inPath, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runImport(store, inPath); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	feeds, err := store.ListFeeds()
	if err != nil {
		t.Fatal(err)
	}
	if len(feeds) != 2 {
		t.Errorf("expected 2 feeds imported, got %d", len(feeds))
	}

	outPath := filepath.Join(dir, "export.opml")
	if err := runExport(store, outPath); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "go.dev/blog/feed.atom") {
		t.Errorf("exported OPML missing feed:\n%s", out)
	}
	if !strings.Contains(out, `text="Tech"`) {
		t.Errorf("exported OPML missing category:\n%s", out)
	}
}

func TestRunImportMissingFile(t *testing.T) {
	store := setupStore(t)

	if err := runImport(store, filepath.Join(t.TempDir(), "nope.opml")); err == nil {
		t.Error("expected error for missing file")
	}
}
