package storage

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"
)

// CategoryID derives a stable category identity from its name and parent.
func CategoryID(name, parentID string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(parentID+"/"+name)))
}

func (s *Store) UpsertCategory(cat *Category) error {
	if cat.ID == "" {
		cat.ID = CategoryID(cat.Name, cat.ParentID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(categoriesBucket)
		data, err := json.Marshal(cat)
		if err != nil {
			return err
		}
		return b.Put([]byte(cat.ID), data)
	})
}

func (s *Store) ListCategories() ([]*Category, error) {
	var cats []*Category
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(categoriesBucket).ForEach(func(_ []byte, v []byte) error {
			var cat Category
			if err := json.Unmarshal(v, &cat); err != nil {
				return err
			}
			cats = append(cats, &cat)
			return nil
		})
	})
	sort.Slice(cats, func(i, j int) bool {
		return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name)
	})
	return cats, err
}

// DeleteCategory removes a category. Member feeds move to uncategorized and
// child categories reparent to the deleted node's parent, so the forest
// invariant holds without ever introducing a cycle.
func (s *Store) DeleteCategory(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		cb := tx.Bucket(categoriesBucket)
		data := cb.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("category %s not found", id)
		}
		var doomed Category
		if err := json.Unmarshal(data, &doomed); err != nil {
			return err
		}
		if err := cb.Delete([]byte(id)); err != nil {
			return err
		}

		// Collect first: writing to a bucket mid-ForEach is undefined.
		reparented := make(map[string][]byte)
		if err := cb.ForEach(func(k []byte, v []byte) error {
			var child Category
			if err := json.Unmarshal(v, &child); err != nil {
				return nil
			}
			if child.ParentID != id {
				return nil
			}
			child.ParentID = doomed.ParentID
			updated, err := json.Marshal(&child)
			if err != nil {
				return err
			}
			reparented[string(k)] = updated
			return nil
		}); err != nil {
			return err
		}
		for k, v := range reparented {
			if err := cb.Put([]byte(k), v); err != nil {
				return err
			}
		}

		fb := tx.Bucket(feedsBucket)
		orphaned := make(map[string][]byte)
		if err := fb.ForEach(func(k []byte, v []byte) error {
			var feed Feed
			if err := json.Unmarshal(v, &feed); err != nil {
				return nil
			}
			if feed.CategoryID != id {
				return nil
			}
			feed.CategoryID = ""
			updated, err := json.Marshal(&feed)
			if err != nil {
				return err
			}
			orphaned[string(k)] = updated
			return nil
		}); err != nil {
			return err
		}
		for k, v := range orphaned {
			if err := fb.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// MoveFeed assigns a feed to a category; empty categoryID means uncategorized.
func (s *Store) MoveFeed(feedID, categoryID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if categoryID != "" {
			if tx.Bucket(categoriesBucket).Get([]byte(categoryID)) == nil {
				return fmt.Errorf("category %s not found", categoryID)
			}
		}
		b := tx.Bucket(feedsBucket)
		data := b.Get([]byte(feedID))
		if data == nil {
			return fmt.Errorf("feed %s not found", feedID)
		}
		var feed Feed
		if err := json.Unmarshal(data, &feed); err != nil {
			return err
		}
		feed.CategoryID = categoryID
		data, err := json.Marshal(&feed)
		if err != nil {
			return err
		}
		return b.Put([]byte(feedID), data)
	})
}

// SetCategoryCollapsed toggles whether a category's children are hidden.
func (s *Store) SetCategoryCollapsed(id string, collapsed bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(categoriesBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("category %s not found", id)
		}
		var cat Category
		if err := json.Unmarshal(data, &cat); err != nil {
			return err
		}
		cat.Collapsed = collapsed
		data, err := json.Marshal(&cat)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}
