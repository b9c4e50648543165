package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/skimreader/skim/internal/storage"
)

type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// ParseResult carries the parsed feed metadata alongside its article drafts.
type ParseResult struct {
	Title    string
	SiteURL  string
	Articles []*storage.Article
}

func (p *Parser) Parse(raw []byte, feedID string) (*ParseResult, error) {
	parsed, err := p.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, newFetchError(ErrParse, fmt.Errorf("parsing feed: %w", err))
	}

	articles := make([]*storage.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		article := &storage.Article{
			ID:      storage.ArticleID(feedID, item.Link, item.GUID),
			FeedID:  feedID,
			Title:   item.Title,
			URL:     item.Link,
			GUID:    item.GUID,
			Summary: item.Description,
		}
		if article.Summary == "" {
			article.Summary = item.Content
		}
		if item.PublishedParsed != nil {
			article.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			article.Published = *item.UpdatedParsed
		}
		articles = append(articles, article)
	}

	return &ParseResult{
		Title:    parsed.Title,
		SiteURL:  parsed.Link,
		Articles: articles,
	}, nil
}
