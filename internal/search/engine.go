// Package search maintains a bleve index over articles so search mode stays
// responsive on large databases. Queries run as background tasks; the index
// never blocks the event loop.
package search

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/skimreader/skim/internal/storage"
)

// Result is one search hit, carrying enough to select the article in the UI.
type Result struct {
	ArticleID string
	FeedID    string
	Title     string
	Score     float64
}

type Engine struct {
	idx bleve.Index
}

// NewEngine opens or creates the index at indexPath. An empty path builds a
// memory-only index (used by tests and as a fallback).
func NewEngine(indexPath string) (*Engine, error) {
	if indexPath == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, err
		}
		return &Engine{idx: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, err
	}
	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, err
		}
	}
	return &Engine{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true

	summary := bleve.NewTextFieldMapping()
	summary.Analyzer = standard.Name
	summary.Store = false

	body := bleve.NewTextFieldMapping()
	body.Analyzer = standard.Name
	body.Store = false

	feedID := bleve.NewKeywordFieldMapping()
	feedID.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("summary", summary)
	dm.AddFieldMappingsAt("content", body)
	dm.AddFieldMappingsAt("feed_id", feedID)

	im.DefaultMapping = dm
	return im
}

// Index upserts articles into the index in one batch.
func (e *Engine) Index(articles []*storage.Article) error {
	batch := e.idx.NewBatch()
	for _, a := range articles {
		if err := batch.Index(a.ID, map[string]any{
			"feed_id": a.FeedID,
			"title":   a.Title,
			"summary": a.Summary,
			"content": a.Content,
		}); err != nil {
			return err
		}
	}
	return e.idx.Batch(batch)
}

// Search matches the query against title, summary and content with term and
// prefix queries, title weighted highest.
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []*Result{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokens {
		for field, boost := range map[string]float64{
			"title":   4.0,
			"summary": 2.0,
			"content": 1.0,
		} {
			mq := bleve.NewMatchQuery(tok)
			mq.SetField(field)
			mq.SetBoost(boost)
			qs = append(qs, mq)

			pq := bleve.NewPrefixQuery(strings.ToLower(tok))
			pq.SetField(field)
			pq.SetBoost(boost * 0.8)
			qs = append(qs, pq)
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "feed_id"}
	res, err := e.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := &Result{ArticleID: h.ID, Score: h.Score}
		if t, ok := h.Fields["title"].(string); ok {
			r.Title = t
		}
		if fid, ok := h.Fields["feed_id"].(string); ok {
			r.FeedID = fid
		}
		out = append(out, r)
	}
	return out, nil
}

// DeleteFeed removes every indexed article belonging to the feed.
func (e *Engine) DeleteFeed(feedID string) error {
	tq := bleve.NewTermQuery(feedID)
	tq.SetField("feed_id")

	const page = 1000
	for {
		req := bleve.NewSearchRequestOptions(tq, page, 0, false)
		res, err := e.idx.Search(req)
		if err != nil {
			return err
		}
		if len(res.Hits) == 0 {
			return nil
		}
		for _, h := range res.Hits {
			if err := e.idx.Delete(h.ID); err != nil {
				return err
			}
		}
		if len(res.Hits) < page {
			return nil
		}
	}
}

// DocCount reports how many articles are indexed.
func (e *Engine) DocCount() (uint64, error) {
	return e.idx.DocCount()
}

func (e *Engine) Close() error {
	return e.idx.Close()
}

func tokenize(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
