package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/skimreader/skim/internal/search"
	"github.com/skimreader/skim/internal/storage"
)

// Messages produced by tea.Cmd closures (loop-local I/O).

type feedsLoadedMsg struct {
	feeds  []*storage.Feed
	unread map[string]int
}

type categoriesLoadedMsg struct {
	categories []*storage.Category
}

type articlesLoadedMsg struct {
	feedID   string
	articles []*storage.Article
}

type feedDeletedMsg struct {
	feedID string
	err    error
}

type categoryDeletedMsg struct {
	categoryID string
	err        error
}

type feedMovedMsg struct {
	feedID     string
	categoryID string
	err        error
}

type subscribedMsg struct {
	feed *storage.Feed
	err  error
}

type errorMsg struct {
	err error
}

type tickMsg time.Time

// Messages funneled through the task pool's event channel.

// contentLoadedMsg is the outcome of a content extraction task. The article
// ID is matched against the currently displayed article before any view
// change; a stale result only updates that article's recorded state.
type contentLoadedMsg struct {
	articleID string
	content   string
	err       error
}

// searchResultsMsg carries results of a background search, already resolved
// to articles. Results from an older generation than the current query are
// dropped.
type searchResultsMsg struct {
	generation uint64
	hits       []*search.Result
	articles   []*storage.Article
	err        error
}

// markedReadMsg reports a bulk mark-read outcome.
type markedReadMsg struct {
	feedID string
	count  int
	err    error
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
