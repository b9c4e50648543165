package tui

import (
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/skimreader/skim/internal/debuglog"
	"github.com/skimreader/skim/internal/storage"
)

func (a *App) loadFeeds() tea.Cmd {
	return func() tea.Msg {
		feeds, err := a.store.ListFeeds()
		if err != nil {
			return errorMsg{err}
		}
		unread, err := a.store.CountUnread()
		if err != nil {
			return errorMsg{err}
		}
		return feedsLoadedMsg{feeds: feeds, unread: unread}
	}
}

func (a *App) loadCategories() tea.Cmd {
	return func() tea.Msg {
		categories, err := a.store.ListCategories()
		if err != nil {
			return errorMsg{err}
		}
		return categoriesLoadedMsg{categories: categories}
	}
}

func (a *App) loadArticles(feedID string) tea.Cmd {
	filter := a.filter
	return func() tea.Msg {
		articles, err := a.store.ListArticles(feedID, filter, 0)
		if err != nil {
			return errorMsg{err}
		}
		return articlesLoadedMsg{feedID: feedID, articles: articles}
	}
}

// subscribe registers the feed immediately with the URL as a placeholder
// title; the follow-up refresh fills in the real title and articles.
func (a *App) subscribe(rawURL string) tea.Cmd {
	categoryID := a.selectedCat
	return func() tea.Msg {
		rawURL = strings.TrimSpace(rawURL)
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return subscribedMsg{err: fmt.Errorf("not a feed URL: %q", rawURL)}
		}

		f := &storage.Feed{
			ID:         storage.FeedID(rawURL),
			URL:        rawURL,
			CategoryID: categoryID,
			CreatedAt:  time.Now(),
		}
		if existing, err := a.store.GetFeed(f.ID); err == nil && existing != nil {
			return subscribedMsg{err: fmt.Errorf("already subscribed to %s", rawURL)}
		}
		if err := a.store.UpsertFeed(f); err != nil {
			return subscribedMsg{err: err}
		}
		debuglog.Info("subscribed to %s", rawURL)
		return subscribedMsg{feed: f}
	}
}

func (a *App) deleteFeed(f *storage.Feed) tea.Cmd {
	return func() tea.Msg {
		if err := a.store.DeleteFeed(f.ID); err != nil {
			return feedDeletedMsg{feedID: f.ID, err: err}
		}
		if err := a.engine.DeleteFeed(f.ID); err != nil {
			debuglog.Warn("search: removing %s from index: %v", f.ID, err)
		}
		debuglog.Info("deleted feed %s (%s)", f.ID, f.URL)
		return feedDeletedMsg{feedID: f.ID}
	}
}

// deleteCategory removes a category. The store moves member feeds to
// uncategorized and reparents child categories one level up.
func (a *App) deleteCategory(cat *storage.Category) tea.Cmd {
	return func() tea.Msg {
		if err := a.store.DeleteCategory(cat.ID); err != nil {
			return categoryDeletedMsg{categoryID: cat.ID, err: err}
		}
		debuglog.Info("deleted category %s (%s)", cat.ID, cat.Name)
		return categoryDeletedMsg{categoryID: cat.ID}
	}
}

func (a *App) moveFeed(f *storage.Feed, categoryID string) tea.Cmd {
	return func() tea.Msg {
		if err := a.store.MoveFeed(f.ID, categoryID); err != nil {
			return feedMovedMsg{feedID: f.ID, err: err}
		}
		return feedMovedMsg{feedID: f.ID, categoryID: categoryID}
	}
}

func (a *App) toggleFlag(article *storage.Article, flag string) tea.Cmd {
	var value bool
	switch flag {
	case storage.FlagRead:
		article.Read = !article.Read
		value = article.Read
	case storage.FlagStarred:
		article.Starred = !article.Starred
		value = article.Starred
	}
	id := article.ID
	return func() tea.Msg {
		if err := a.store.SetArticleFlag(id, flag, value); err != nil {
			return errorMsg{err}
		}
		return nil
	}
}

func (a *App) markAllRead(feedID string) tea.Cmd {
	return func() tea.Msg {
		count, err := a.store.MarkFeedRead(feedID)
		return markedReadMsg{feedID: feedID, count: count, err: err}
	}
}

// refreshAll hands the full feed set to the coordinator. The coordinator
// returns immediately; outcomes arrive on the event channel.
func (a *App) refreshAll() tea.Cmd {
	if len(a.allFeeds) == 0 || a.refreshing {
		return nil
	}
	a.refreshing = true
	a.setStatus(MsgRefreshing, 0)
	a.coord.Refresh(a.allFeeds)
	return nil
}

func (a *App) refreshOne(f *storage.Feed) tea.Cmd {
	if f == nil {
		return nil
	}
	if a.coord.InFlight(f.ID) {
		a.setStatus("Already refreshing "+f.Title, 0)
		return nil
	}
	a.setStatus(MsgRefreshing, 0)
	a.coord.Refresh([]*storage.Feed{f})
	return nil
}

// startSearch runs the query off the loop and tags the task with the
// current generation so results for superseded queries are dropped.
func (a *App) startSearch(query string) {
	a.searchGen++
	gen := a.searchGen
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	a.setStatus(MsgSearching, 0)
	a.pool.Go("search", func() any {
		hits, err := a.engine.Search(query, 50)
		if err != nil {
			return searchResultsMsg{generation: gen, err: err}
		}
		articles := make([]*storage.Article, 0, len(hits))
		for _, hit := range hits {
			art, err := a.store.GetArticle(hit.ArticleID)
			if err != nil || art == nil {
				continue
			}
			articles = append(articles, art)
		}
		return searchResultsMsg{generation: gen, hits: hits, articles: articles}
	})
}

func (a *App) openBrowser(rawURL string) tea.Cmd {
	if rawURL == "" {
		return nil
	}
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", rawURL)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
		default:
			cmd = exec.Command("xdg-open", rawURL)
		}
		if err := cmd.Start(); err != nil {
			return errorMsg{fmt.Errorf("opening browser: %w", err)}
		}
		return nil
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
