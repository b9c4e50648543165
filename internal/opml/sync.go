package opml

import (
	"fmt"

	"github.com/skimreader/skim/internal/storage"
)

// Import persists a decoded subscription tree. Feeds and categories upsert
// under their stable IDs, so re-importing the same file is a no-op.
func Import(store *storage.Store, tree *Tree) (int, error) {
	imported := 0

	var walk func(node *Node, parentID string) error
	walk = func(node *Node, parentID string) error {
		cat := &storage.Category{
			ID:       storage.CategoryID(node.Name, parentID),
			Name:     node.Name,
			ParentID: parentID,
		}
		if err := store.UpsertCategory(cat); err != nil {
			return fmt.Errorf("importing category %q: %w", node.Name, err)
		}
		for _, entry := range node.Feeds {
			if err := importFeed(store, entry, cat.ID); err != nil {
				return err
			}
			imported++
		}
		for _, child := range node.Children {
			if err := walk(child, cat.ID); err != nil {
				return err
			}
		}
		return nil
	}

	for _, cat := range tree.Categories {
		if err := walk(cat, ""); err != nil {
			return imported, err
		}
	}
	for _, entry := range tree.Feeds {
		if err := importFeed(store, entry, ""); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func importFeed(store *storage.Store, entry *FeedEntry, categoryID string) error {
	feed := &storage.Feed{
		ID:         storage.FeedID(entry.XMLURL),
		URL:        entry.XMLURL,
		Title:      entry.Title,
		SiteURL:    entry.HTMLURL,
		CategoryID: categoryID,
	}
	if err := store.UpsertFeed(feed); err != nil {
		return fmt.Errorf("importing feed %q: %w", entry.XMLURL, err)
	}
	return nil
}

// Export rebuilds the subscription tree from the store.
func Export(store *storage.Store) (*Tree, error) {
	cats, err := store.ListCategories()
	if err != nil {
		return nil, err
	}
	feeds, err := store.ListFeeds()
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*Node, len(cats))
	for _, cat := range cats {
		nodes[cat.ID] = &Node{Name: cat.Name}
	}

	tree := &Tree{}
	for _, cat := range cats {
		node := nodes[cat.ID]
		if parent, ok := nodes[cat.ParentID]; ok && cat.ParentID != "" {
			parent.Children = append(parent.Children, node)
		} else {
			tree.Categories = append(tree.Categories, node)
		}
	}

	for _, feed := range feeds {
		entry := &FeedEntry{Title: feed.Title, XMLURL: feed.URL, HTMLURL: feed.SiteURL}
		if node, ok := nodes[feed.CategoryID]; ok && feed.CategoryID != "" {
			node.Feeds = append(node.Feeds, entry)
		} else {
			tree.Feeds = append(tree.Feeds, entry)
		}
	}
	return tree, nil
}
