package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/skimreader/skim/internal/storage"
)

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.view {
	case ViewBrowse:
		return a.handleBrowseKey(msg)
	case ViewReader:
		return a.handleReaderKey(msg)
	case ViewSubscribe:
		return a.handleSubscribeKey(msg)
	case ViewDeleteConfirm:
		return a.handleDeleteConfirmKey(msg)
	}
	return a, nil
}

func (a *App) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.searchMode {
		return a.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "tab":
		a.cycleFocus(1)
		return a, nil
	case "shift+tab":
		a.cycleFocus(-1)
		return a, nil

	case "r":
		return a, a.refreshOne(a.selectedFeed())
	case "R":
		return a, a.refreshAll()

	case "a":
		a.view = ViewSubscribe
		a.subscribeInput.SetValue("")
		a.subscribeInput.Focus()
		return a, nil

	case "/":
		a.searchMode = true
		a.searchInput.SetValue("")
		a.searchInput.Focus()
		return a, nil

	case "S":
		a.cycleFilter()
		if f := a.selectedFeed(); f != nil {
			return a, a.loadArticles(f.ID)
		}
		return a, nil

	case "M":
		if f := a.selectedFeed(); f != nil {
			return a, a.markAllRead(f.ID)
		}
		return a, nil
	}

	switch a.focus {
	case FocusCategories:
		return a.handleCategoryKey(msg)
	case FocusFeeds:
		return a.handleFeedKey(msg)
	case FocusArticles:
		return a.handleArticleKey(msg)
	}
	return a, nil
}

func (a *App) handleCategoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if a.categoryIdx < len(a.categoryRows)-1 {
			a.categoryIdx++
		}
	case "k", "up":
		if a.categoryIdx > 0 {
			a.categoryIdx--
		}
	case "c", " ":
		row := a.selectedCategoryRow()
		if row != nil && row.id != "" && row.children {
			return a, a.toggleCollapsed(row.id, !row.collapsed)
		}
	case "d":
		if row := a.selectedCategoryRow(); row != nil && row.id != "" {
			if cat := a.categoryByID(row.id); cat != nil {
				a.categoryToDelete = cat
				a.view = ViewDeleteConfirm
			}
		}
	case "enter", "l", "right":
		if row := a.selectedCategoryRow(); row != nil {
			a.selectedCat = row.id
			a.applyCategoryFilter()
			a.focus = FocusFeeds
		}
	}
	return a, nil
}

func (a *App) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "l", "right":
		if f := a.selectedFeed(); f != nil {
			a.currentFeed = f
			a.focus = FocusArticles
			return a, a.loadArticles(f.ID)
		}
		return a, nil
	case "h", "left":
		if len(a.categories) > 0 {
			a.focus = FocusCategories
		}
		return a, nil
	case "d":
		if f := a.selectedFeed(); f != nil {
			a.feedToDelete = f
			a.view = ViewDeleteConfirm
		}
		return a, nil
	case "m":
		// File the feed under the category highlighted in the sidebar;
		// the "All feeds" row files it as uncategorized.
		if f := a.selectedFeed(); f != nil {
			target := ""
			if row := a.selectedCategoryRow(); row != nil {
				target = row.id
			}
			return a, a.moveFeed(f, target)
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.feedList, cmd = a.feedList.Update(msg)
	if f := a.selectedFeed(); f != nil && (a.currentFeed == nil || a.currentFeed.ID != f.ID) {
		a.currentFeed = f
		return a, tea.Batch(cmd, a.loadArticles(f.ID))
	}
	return a, cmd
}

func (a *App) handleArticleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "l", "right":
		if art := a.selectedArticle(); art != nil {
			return a, a.openReader(art)
		}
		return a, nil
	case "h", "left", "esc":
		a.focus = FocusFeeds
		return a, nil
	case "m":
		if art := a.selectedArticle(); art != nil {
			cmd := a.toggleFlag(art, storage.FlagRead)
			a.adjustUnread(art.FeedID, art.Read)
			a.refreshArticleItems()
			return a, cmd
		}
		return a, nil
	case "s":
		if art := a.selectedArticle(); art != nil {
			cmd := a.toggleFlag(art, storage.FlagStarred)
			a.refreshArticleItems()
			return a, cmd
		}
		return a, nil
	case "o":
		if art := a.selectedArticle(); art != nil {
			return a, a.openBrowser(art.URL)
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.articleList, cmd = a.articleList.Update(msg)
	return a, cmd
}

func (a *App) handleReaderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "esc", "h", "left":
		a.view = ViewBrowse
		return a, nil
	case "e":
		if a.currentArticle != nil {
			a.requestContent(a.currentArticle, true)
			a.renderReader()
		}
		return a, nil
	case "o":
		if a.currentArticle != nil {
			return a, a.openBrowser(a.currentArticle.URL)
		}
		return a, nil
	case "s":
		if a.currentArticle != nil {
			return a, a.toggleFlag(a.currentArticle, storage.FlagStarred)
		}
		return a, nil
	case "n", "right":
		return a, a.adjacentArticle(1)
	case "p":
		return a, a.adjacentArticle(-1)
	}
	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) handleSubscribeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.view = ViewBrowse
		return a, nil
	case "enter":
		url := a.subscribeInput.Value()
		if url == "" {
			return a, nil
		}
		return a, a.subscribe(url)
	}
	var cmd tea.Cmd
	a.subscribeInput, cmd = a.subscribeInput.Update(msg)
	return a, cmd
}

func (a *App) handleDeleteConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		if a.categoryToDelete != nil {
			return a, a.deleteCategory(a.categoryToDelete)
		}
		if a.feedToDelete != nil {
			return a, a.deleteFeed(a.feedToDelete)
		}
		a.view = ViewBrowse
		return a, nil
	case "esc", "n":
		a.view = ViewBrowse
		a.feedToDelete = nil
		a.categoryToDelete = nil
		return a, nil
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.exitSearch()
		if a.currentFeed != nil {
			return a, a.loadArticles(a.currentFeed.ID)
		}
		return a, nil
	case "enter":
		a.startSearch(a.searchInput.Value())
		a.focus = FocusArticles
		return a, nil
	case "ctrl+c":
		return a, tea.Quit
	}
	if a.focus == FocusArticles {
		return a.handleArticleKey(msg)
	}
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	return a, cmd
}

func (a *App) exitSearch() {
	a.searchMode = false
	a.searchGen++
	a.searchInput.Blur()
	a.focus = FocusFeeds
}

// openReader switches to the reader, marks the article read, and kicks off
// extraction if needed. The view renders immediately off the summary; the
// extracted body replaces it when the task resolves.
func (a *App) openReader(art *storage.Article) tea.Cmd {
	a.currentArticle = art
	a.view = ViewReader

	var markCmd tea.Cmd
	if !art.Read {
		markCmd = a.toggleFlag(art, storage.FlagRead)
		a.adjustUnread(art.FeedID, true)
	}

	a.requestContent(art, false)
	a.renderReader()
	return markCmd
}

// adjacentArticle moves the reader to the previous or next article in the
// current list.
func (a *App) adjacentArticle(delta int) tea.Cmd {
	if a.currentArticle == nil {
		return nil
	}
	for i, art := range a.articles {
		if art.ID != a.currentArticle.ID {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(a.articles) {
			return nil
		}
		a.articleList.Select(j)
		return a.openReader(a.articles[j])
	}
	return nil
}

func (a *App) cycleFocus(delta int) {
	order := []Focus{FocusFeeds, FocusArticles}
	if len(a.categories) > 0 {
		order = []Focus{FocusCategories, FocusFeeds, FocusArticles}
	}
	for i, f := range order {
		if f == a.focus {
			a.focus = order[(i+delta+len(order))%len(order)]
			return
		}
	}
	a.focus = order[0]
}

func (a *App) cycleFilter() {
	switch a.filter {
	case storage.FilterAll:
		a.filter = storage.FilterUnread
		a.setStatus("Showing unread", 0)
	case storage.FilterUnread:
		a.filter = storage.FilterStarred
		a.setStatus("Showing starred", 0)
	default:
		a.filter = storage.FilterAll
		a.setStatus("Showing all", 0)
	}
}

func (a *App) toggleCollapsed(categoryID string, collapsed bool) tea.Cmd {
	for _, cat := range a.categories {
		if cat.ID == categoryID {
			cat.Collapsed = collapsed
		}
	}
	a.rebuildCategoryRows()
	return func() tea.Msg {
		if err := a.store.SetCategoryCollapsed(categoryID, collapsed); err != nil {
			return errorMsg{err}
		}
		return nil
	}
}

func (a *App) categoryByID(id string) *storage.Category {
	for _, cat := range a.categories {
		if cat.ID == id {
			return cat
		}
	}
	return nil
}

func (a *App) selectedCategoryRow() *categoryRow {
	if a.categoryIdx < 0 || a.categoryIdx >= len(a.categoryRows) {
		return nil
	}
	return &a.categoryRows[a.categoryIdx]
}

func (a *App) selectedFeed() *storage.Feed {
	item, ok := a.feedList.SelectedItem().(feedItem)
	if !ok {
		return nil
	}
	return item.feed
}

func (a *App) selectedArticle() *storage.Article {
	item, ok := a.articleList.SelectedItem().(articleItem)
	if !ok {
		return nil
	}
	return item.article
}

// adjustUnread keeps the sidebar counters in step with a local read toggle
// without a round trip to storage. nowRead reports the article's new state.
func (a *App) adjustUnread(feedID string, nowRead bool) {
	if nowRead {
		if a.unread[feedID] > 0 {
			a.unread[feedID]--
		}
	} else {
		a.unread[feedID]++
	}
	a.setFeeds(a.feeds)
	a.rebuildCategoryRows()
}

// refreshArticleItems re-renders the article list after an in-place flag
// change on one of its items.
func (a *App) refreshArticleItems() {
	a.setArticles(a.articles)
}
