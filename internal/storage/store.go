package storage

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	feedsBucket      = []byte("feeds")
	categoriesBucket = []byte("categories")
	articlesBucket   = []byte("articles")
)

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{feedsBucket, categoriesBucket, articlesBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FeedID derives the stable feed identity from its canonical URL.
func FeedID(url string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(url)))
}

// ArticleID derives the dedup key for an article: feed identity plus the
// canonical link, falling back to the GUID when no link is present.
// Re-fetching a feed therefore upserts instead of duplicating.
func ArticleID(feedID, link, guid string) string {
	key := link
	if key == "" {
		key = guid
	}
	return fmt.Sprintf("%s:%x", feedID, sha256.Sum256([]byte(key)))
}

func (s *Store) UpsertFeed(feed *Feed) error {
	if feed.ID == "" {
		feed.ID = FeedID(feed.URL)
	}
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = time.Now()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(feedsBucket)
		data, err := json.Marshal(feed)
		if err != nil {
			return err
		}
		return b.Put([]byte(feed.ID), data)
	})
}

func (s *Store) GetFeed(id string) (*Feed, error) {
	var feed Feed
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(feedsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("feed %s not found", id)
		}
		return json.Unmarshal(data, &feed)
	})
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (s *Store) ListFeeds() ([]*Feed, error) {
	var feeds []*Feed
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(feedsBucket).ForEach(func(_ []byte, v []byte) error {
			var feed Feed
			if err := json.Unmarshal(v, &feed); err != nil {
				return err
			}
			feeds = append(feeds, &feed)
			return nil
		})
	})
	sort.Slice(feeds, func(i, j int) bool {
		ti := feeds[i].Title
		tj := feeds[j].Title
		if ti == "" {
			ti = feeds[i].URL
		}
		if tj == "" {
			tj = feeds[j].URL
		}
		return strings.ToLower(ti) < strings.ToLower(tj)
	})
	return feeds, err
}

// SetFeedStatus records the outcome of a refresh attempt. An empty lastError
// clears any previous error.
func (s *Store) SetFeedStatus(feedID string, refreshedAt time.Time, lastError string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(feedsBucket)
		data := b.Get([]byte(feedID))
		if data == nil {
			return fmt.Errorf("feed %s not found", feedID)
		}
		var feed Feed
		if err := json.Unmarshal(data, &feed); err != nil {
			return err
		}
		feed.LastError = lastError
		if lastError == "" {
			feed.LastRefreshed = refreshedAt
		}
		data, err := json.Marshal(&feed)
		if err != nil {
			return err
		}
		return b.Put([]byte(feed.ID), data)
	})
}

func (s *Store) DeleteFeed(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(feedsBucket).Delete([]byte(id)); err != nil {
			return err
		}

		// Cascade: article keys are prefixed with the feed ID.
		c := tx.Bucket(articlesBucket).Cursor()
		prefix := []byte(id + ":")
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertArticles stores drafts under their dedup key and returns how many
// were newly created. Existing articles keep their read/starred flags and
// any extracted content; title, summary, and timestamps refresh from the
// incoming draft.
func (s *Store) UpsertArticles(feedID string, drafts []*Article) (int, error) {
	added := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		for _, draft := range drafts {
			if draft.ID == "" {
				draft.ID = ArticleID(feedID, draft.URL, draft.GUID)
			}
			draft.FeedID = feedID

			if existing := b.Get([]byte(draft.ID)); existing != nil {
				var prev Article
				if err := json.Unmarshal(existing, &prev); err == nil {
					draft.Read = prev.Read
					draft.Starred = prev.Starred
					if draft.Content == "" {
						draft.Content = prev.Content
					}
				}
			} else {
				added++
			}

			data, err := json.Marshal(draft)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(draft.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (s *Store) GetArticle(id string) (*Article, error) {
	var article Article
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(articlesBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("article %s not found", id)
		}
		return json.Unmarshal(data, &article)
	})
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// ListArticles returns articles for one feed, or all feeds when feedID is
// empty, newest first. limit <= 0 means no limit.
func (s *Store) ListArticles(feedID string, filter ArticleFilter, limit int) ([]*Article, error) {
	var articles []*Article
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(_ []byte, v []byte) error {
			var article Article
			if err := json.Unmarshal(v, &article); err != nil {
				return nil
			}
			if feedID != "" && article.FeedID != feedID {
				return nil
			}
			switch filter {
			case FilterUnread:
				if article.Read {
					return nil
				}
			case FilterStarred:
				if !article.Starred {
					return nil
				}
			}
			articles = append(articles, &article)
			return nil
		})
	})
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, err
}

// CountUnread returns the number of unread articles per feed.
func (s *Store) CountUnread() (map[string]int, error) {
	counts := make(map[string]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(_ []byte, v []byte) error {
			var article Article
			if err := json.Unmarshal(v, &article); err != nil {
				return nil
			}
			if !article.Read {
				counts[article.FeedID]++
			}
			return nil
		})
	})
	return counts, err
}

func (s *Store) SetArticleFlag(id, flag string, value bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("article %s not found", id)
		}

		var article Article
		if err := json.Unmarshal(data, &article); err != nil {
			return err
		}

		switch flag {
		case FlagRead:
			article.Read = value
		case FlagStarred:
			article.Starred = value
		default:
			return fmt.Errorf("unknown article flag %q", flag)
		}

		data, err := json.Marshal(&article)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

// MarkFeedRead marks every article of a feed as read and returns the count
// of articles flipped. An empty feedID marks all feeds.
func (s *Store) MarkFeedRead(feedID string) (int, error) {
	flipped := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)

		// Collect first: writing to a bucket mid-ForEach is undefined.
		pending := make(map[string][]byte)
		if err := b.ForEach(func(k []byte, v []byte) error {
			var article Article
			if err := json.Unmarshal(v, &article); err != nil {
				return nil
			}
			if feedID != "" && article.FeedID != feedID {
				return nil
			}
			if article.Read {
				return nil
			}
			article.Read = true
			data, err := json.Marshal(&article)
			if err != nil {
				return err
			}
			pending[string(k)] = data
			return nil
		}); err != nil {
			return err
		}

		for k, data := range pending {
			if err := b.Put([]byte(k), data); err != nil {
				return err
			}
		}
		flipped = len(pending)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flipped, nil
}

// SetArticleContent persists extracted full text for an article.
func (s *Store) SetArticleContent(id, content string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("article %s not found", id)
		}
		var article Article
		if err := json.Unmarshal(data, &article); err != nil {
			return err
		}
		article.Content = content
		data, err := json.Marshal(&article)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}
