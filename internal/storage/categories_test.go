package storage

import (
	"testing"
)

func TestStore_UpsertCategoryDerivesID(t *testing.T) {
	store := setupTestStore(t)

	cat := &Category{Name: "Tech"}
	if err := store.UpsertCategory(cat); err != nil {
		t.Fatal(err)
	}
	if cat.ID == "" {
		t.Fatal("expected derived ID")
	}
	if cat.ID != CategoryID("Tech", "") {
		t.Errorf("ID not derived from name and parent")
	}

	// Same name under a different parent is a different category.
	other := CategoryID("Tech", "some-parent")
	if other == cat.ID {
		t.Error("expected distinct IDs for distinct parents")
	}
}

func TestStore_DeleteCategoryReparents(t *testing.T) {
	store := setupTestStore(t)

	parent := &Category{Name: "News"}
	if err := store.UpsertCategory(parent); err != nil {
		t.Fatal(err)
	}
	middle := &Category{Name: "Tech", ParentID: parent.ID}
	if err := store.UpsertCategory(middle); err != nil {
		t.Fatal(err)
	}
	leaf := &Category{Name: "Go", ParentID: middle.ID}
	if err := store.UpsertCategory(leaf); err != nil {
		t.Fatal(err)
	}

	feed := testFeed("http://example.com/feed.xml")
	feed.CategoryID = middle.ID
	if err := store.UpsertFeed(feed); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteCategory(middle.ID); err != nil {
		t.Fatal(err)
	}

	cats, err := store.ListCategories()
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	for _, cat := range cats {
		if cat.ID == leaf.ID && cat.ParentID != parent.ID {
			t.Errorf("leaf not reparented: parent is %s", cat.ParentID)
		}
	}

	got, err := store.GetFeed(feed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CategoryID != "" {
		t.Errorf("feed not moved to uncategorized: %s", got.CategoryID)
	}
}

func TestStore_MoveFeed(t *testing.T) {
	store := setupTestStore(t)

	cat := &Category{Name: "Tech"}
	if err := store.UpsertCategory(cat); err != nil {
		t.Fatal(err)
	}
	feed := testFeed("http://example.com/feed.xml")
	if err := store.UpsertFeed(feed); err != nil {
		t.Fatal(err)
	}

	if err := store.MoveFeed(feed.ID, cat.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetFeed(feed.ID)
	if got.CategoryID != cat.ID {
		t.Errorf("expected category %s, got %s", cat.ID, got.CategoryID)
	}

	if err := store.MoveFeed(feed.ID, "no-such-category"); err == nil {
		t.Error("expected error moving to missing category")
	}

	if err := store.MoveFeed(feed.ID, ""); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetFeed(feed.ID)
	if got.CategoryID != "" {
		t.Errorf("expected uncategorized, got %s", got.CategoryID)
	}
}

func TestStore_SetCategoryCollapsed(t *testing.T) {
	store := setupTestStore(t)

	cat := &Category{Name: "Tech"}
	if err := store.UpsertCategory(cat); err != nil {
		t.Fatal(err)
	}

	if err := store.SetCategoryCollapsed(cat.ID, true); err != nil {
		t.Fatal(err)
	}
	cats, err := store.ListCategories()
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || !cats[0].Collapsed {
		t.Error("expected collapsed state persisted")
	}
}
