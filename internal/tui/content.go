package tui

import (
	"context"
	"errors"

	"github.com/skimreader/skim/internal/debuglog"
	"github.com/skimreader/skim/internal/storage"
)

var errNoLink = errors.New("article has no link")

// ContentState tracks the on-demand body-loading lifecycle of one article.
// Loaded and Failed may re-enter Loading on an explicit retry.
type ContentState int

const (
	ContentIdle ContentState = iota
	ContentLoading
	ContentLoaded
	ContentFailed
)

// contentEntry is the session-local record for an article's extraction.
type contentEntry struct {
	state ContentState
	text  string
	err   error
}

func (a *App) contentFor(articleID string) contentEntry {
	if e, ok := a.contentStates[articleID]; ok {
		return *e
	}
	return contentEntry{state: ContentIdle}
}

// requestContent moves an article to Loading and spawns the extraction
// task. Already-loading articles are left alone so at most one extraction
// per article is ever in flight; Loaded articles are only re-fetched when
// forced.
func (a *App) requestContent(article *storage.Article, force bool) {
	entry := a.contentFor(article.ID)
	switch entry.state {
	case ContentLoading:
		return
	case ContentLoaded:
		if !force {
			return
		}
	}

	// Persisted content from an earlier session short-circuits the network.
	if !force && article.Content != "" {
		a.contentStates[article.ID] = &contentEntry{state: ContentLoaded, text: article.Content}
		return
	}

	if article.URL == "" {
		a.contentStates[article.ID] = &contentEntry{state: ContentFailed, err: errNoLink}
		return
	}

	a.contentStates[article.ID] = &contentEntry{state: ContentLoading}

	articleID := article.ID
	articleURL := article.URL
	timeout := a.cfg.Extractor.Timeout
	a.pool.Go("content:"+articleID, func() any {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := a.extractor.Extract(ctx, articleURL)
		return contentLoadedMsg{articleID: articleID, content: text, err: err}
	})
}

// applyContentResult commits an extraction outcome to the state machine.
// The result is always recorded against its own article; only when that
// article is still the one on screen does the reader view react, so a load
// finishing after navigation never pops in over the wrong article.
func (a *App) applyContentResult(msg contentLoadedMsg) {
	if msg.err != nil {
		a.contentStates[msg.articleID] = &contentEntry{state: ContentFailed, err: msg.err}
		debuglog.Debug("content: extraction failed for %s: %v", msg.articleID, msg.err)
	} else {
		a.contentStates[msg.articleID] = &contentEntry{state: ContentLoaded, text: msg.content}
		if err := a.store.SetArticleContent(msg.articleID, msg.content); err != nil {
			debuglog.Warn("content: persisting for %s: %v", msg.articleID, err)
		}
		for _, art := range a.articles {
			if art.ID == msg.articleID {
				art.Content = msg.content
				break
			}
		}
	}

	current := a.currentArticle
	if current == nil || current.ID != msg.articleID {
		return
	}

	if a.view == ViewReader {
		a.renderReader()
		if msg.err != nil {
			a.setStatus(MsgExtractionFailed(msg.err), 0)
		}
	}
}

// readerBody returns the displayable body for the current article. A failed
// or pending extraction falls back to the stored summary; the reader never
// blocks on the extraction service.
func (a *App) readerBody(article *storage.Article) (string, ContentState) {
	entry := a.contentFor(article.ID)
	switch entry.state {
	case ContentLoaded:
		return entry.text, ContentLoaded
	case ContentFailed:
		return article.Summary, ContentFailed
	case ContentLoading:
		return article.Summary, ContentLoading
	default:
		return article.Summary, ContentIdle
	}
}
