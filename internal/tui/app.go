package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/skimreader/skim/internal/config"
	"github.com/skimreader/skim/internal/content"
	"github.com/skimreader/skim/internal/debuglog"
	"github.com/skimreader/skim/internal/feed"
	"github.com/skimreader/skim/internal/search"
	"github.com/skimreader/skim/internal/storage"
	"github.com/skimreader/skim/internal/task"
)

// App is the single authoritative application state. Only Update mutates
// it; background tasks communicate exclusively through the task pool's
// event channel.
type App struct {
	cfg       *config.Config
	store     *storage.Store
	pool      *task.Pool
	coord     *feed.Coordinator
	extractor *content.Extractor
	engine    *search.Engine
	st        styles

	view  View
	focus Focus

	categories   []*storage.Category
	categoryRows []categoryRow
	categoryIdx  int
	selectedCat  string // "" selects all feeds

	allFeeds []*storage.Feed
	feeds    []*storage.Feed
	unread   map[string]int
	articles []*storage.Article
	filter   storage.ArticleFilter

	feedList    list.Model
	articleList list.Model
	viewport    viewport.Model
	spin        spinner.Model

	currentFeed    *storage.Feed
	currentArticle *storage.Article

	subscribeInput   textinput.Model
	feedToDelete     *storage.Feed
	categoryToDelete *storage.Category

	searchMode  bool
	searchInput textinput.Model
	searchGen   uint64

	contentStates map[string]*contentEntry

	statusMsg    string
	statusExpiry time.Time
	refreshing   bool
	lastAuto     time.Time

	renderer      *glamour.TermRenderer
	rendererWidth int

	width  int
	height int
	err    error
}

func NewApp(store *storage.Store, cfg *config.Config, engine *search.Engine) *App {
	feedList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	feedList.Title = "› feeds"
	feedList.SetShowStatusBar(false)
	feedList.SetFilteringEnabled(false)
	feedList.SetShowHelp(false)

	articleList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	articleList.Title = "› articles"
	articleList.SetShowStatusBar(false)
	articleList.SetFilteringEnabled(false)
	articleList.SetShowHelp(false)

	si := textinput.New()
	si.Placeholder = "Enter feed URL…"

	qi := textinput.New()
	qi.Placeholder = "Search articles…"

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	pool := task.NewPool(64)

	app := &App{
		cfg:            cfg,
		store:          store,
		pool:           pool,
		coord:          feed.NewCoordinator(store, cfg, pool),
		extractor:      content.NewExtractor(cfg),
		engine:         engine,
		st:             newStyles(cfg),
		view:           ViewBrowse,
		focus:          FocusFeeds,
		unread:         map[string]int{},
		feedList:       feedList,
		articleList:    articleList,
		viewport:       viewport.New(0, 0),
		spin:           sp,
		subscribeInput: si,
		searchInput:    qi,
		contentStates:  map[string]*contentEntry{},
		lastAuto:       time.Now(),
	}
	return app
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.loadCategories(),
		a.loadFeeds(),
		a.waitForEvent(),
		tick(),
		a.spin.Tick,
		tea.EnterAltScreen,
	)
}

// waitForEvent blocks on the next background outcome and delivers it as a
// message. Re-armed after every receipt so the channel drains fairly
// alongside key input and the tick timer.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return tea.Msg(<-a.pool.Events())
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	rearm := false

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tickMsg:
		a.clearExpiredStatus()
		cmds = append(cmds, a.maybeAutoRefresh())
		cmds = append(cmds, tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		cmds = append(cmds, cmd)

	case categoriesLoadedMsg:
		a.categories = msg.categories
		a.rebuildCategoryRows()

	case feedsLoadedMsg:
		a.allFeeds = msg.feeds
		a.unread = msg.unread
		a.applyCategoryFilter()
		a.rebuildCategoryRows()

	case articlesLoadedMsg:
		// Stale load: the user has moved to another feed meanwhile.
		if a.currentFeed == nil || a.currentFeed.ID == msg.feedID {
			a.setArticles(msg.articles)
		}

	case feed.RefreshProgress:
		rearm = true
		a.setStatus(MsgRefreshProgress(msg.Done, msg.Total), 0)

	case feed.FeedRefreshed:
		rearm = true
		a.applyFeedRefreshed(msg)

	case feed.RefreshComplete:
		rearm = true
		a.refreshing = false
		a.setStatus(MsgRefreshSummary(msg.Succeeded, msg.Failed, msg.Skipped, msg.Added), 8*time.Second)
		cmds = append(cmds, a.loadFeeds())

	case contentLoadedMsg:
		rearm = true
		a.applyContentResult(msg)

	case searchResultsMsg:
		rearm = true
		a.applySearchResults(msg)

	case task.Crashed:
		rearm = true
		debuglog.Error("background task %s crashed: %v", msg.Task, msg.Err)
		a.setStatus(fmt.Sprintf("Internal error in %s task", msg.Task), 0)

	case subscribedMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.view = ViewBrowse
			a.setStatus(MsgSubscribed, 0)
			cmds = append(cmds, a.loadFeeds(), a.refreshOne(msg.feed))
		}

	case feedDeletedMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.view = ViewBrowse
			a.feedToDelete = nil
			if a.currentFeed != nil && a.currentFeed.ID == msg.feedID {
				a.currentFeed = nil
				a.setArticles(nil)
			}
			a.setStatus(MsgDeleted, 0)
			cmds = append(cmds, a.loadFeeds())
		}

	case categoryDeletedMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.view = ViewBrowse
			a.categoryToDelete = nil
			if a.selectedCat == msg.categoryID {
				a.selectedCat = ""
			}
			a.setStatus(MsgCategoryDeleted, 0)
			cmds = append(cmds, a.loadCategories(), a.loadFeeds())
		}

	case feedMovedMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.setStatus(MsgFeedMoved, 0)
			cmds = append(cmds, a.loadFeeds())
		}

	case markedReadMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.setStatus(MsgMarkedRead(msg.count), 0)
			cmds = append(cmds, a.loadFeeds(), a.loadArticles(msg.feedID))
		}

	case errorMsg:
		a.err = msg.err
	}

	if rearm {
		cmds = append(cmds, a.waitForEvent())
	}

	// Route remaining messages to the component owning the focus.
	switch a.view {
	case ViewBrowse:
		if a.searchMode {
			var cmd tea.Cmd
			a.searchInput, cmd = a.searchInput.Update(msg)
			cmds = append(cmds, cmd)
		}
	case ViewReader:
		switch msg.(type) {
		case tea.MouseMsg:
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	case ViewSubscribe:
		var cmd tea.Cmd
		a.subscribeInput, cmd = a.subscribeInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	catWidth := a.categoryPaneWidth()
	// Each pane loses two cells per axis to its border.
	listHeight := height - 5
	feedWidth := (width - catWidth) * 2 / 5
	a.feedList.SetSize(feedWidth-2, listHeight)
	a.articleList.SetSize(width-catWidth-feedWidth-2, listHeight)
	a.viewport.Width = width
	a.viewport.Height = height - 3
	a.subscribeInput.Width = max(20, width-8)
}

func (a *App) categoryPaneWidth() int {
	if len(a.categories) == 0 {
		return 0
	}
	w := a.width / 5
	if w < 18 {
		w = 18
	}
	return w
}

func (a *App) loadingVisible() bool {
	if a.view != ViewReader || a.currentArticle == nil {
		return false
	}
	return a.contentFor(a.currentArticle.ID).state == ContentLoading
}

// applyFeedRefreshed commits one feed's refresh outcome. Successful feeds
// land incrementally; a failed feed only gets its error marker, its stored
// articles stay untouched.
func (a *App) applyFeedRefreshed(msg feed.FeedRefreshed) {
	for _, f := range a.allFeeds {
		if f.ID != msg.FeedID {
			continue
		}
		if msg.Err != nil {
			f.LastError = msg.Err.Error()
		} else {
			f.LastError = ""
			f.LastRefreshed = time.Now()
			if msg.Title != "" {
				f.Title = msg.Title
			}
		}
		break
	}

	if msg.Err != nil {
		debuglog.Info("refresh: %s failed: %v", msg.FeedID, msg.Err)
		a.applyCategoryFilter()
		return
	}

	unread := 0
	for _, art := range msg.Articles {
		if !art.Read {
			unread++
		}
	}
	a.unread[msg.FeedID] = unread
	a.applyCategoryFilter()
	a.rebuildCategoryRows()

	if a.currentFeed != nil && a.currentFeed.ID == msg.FeedID && !a.searchMode {
		a.setArticles(msg.Articles)
	}

	// Index a snapshot off the loop; the loop keeps mutating the live
	// structs (read flags, extracted content) while the task runs.
	snapshot := snapshotArticles(msg.Articles)
	a.pool.Go("index:"+msg.FeedID, func() any {
		if err := a.engine.Index(snapshot); err != nil {
			debuglog.Warn("search: indexing %s: %v", msg.FeedID, err)
		}
		return nil
	})
}

func (a *App) applySearchResults(msg searchResultsMsg) {
	if msg.generation != a.searchGen {
		debuglog.Debug("search: dropping stale results (gen %d, current %d)", msg.generation, a.searchGen)
		return
	}
	if msg.err != nil {
		a.err = msg.err
		return
	}
	a.setArticles(msg.articles)
	a.statusMsg = ""
	if len(msg.articles) == 0 {
		a.setStatus("No results", 0)
	}
}

// snapshotArticles copies articles into fresh structs safe to hand to a
// background task while the event loop goes on writing the originals.
func snapshotArticles(articles []*storage.Article) []*storage.Article {
	out := make([]*storage.Article, len(articles))
	for i, art := range articles {
		cp := *art
		out[i] = &cp
	}
	return out
}

func (a *App) setArticles(articles []*storage.Article) {
	a.articles = articles
	items := make([]list.Item, len(articles))
	for i, art := range articles {
		items[i] = articleItem{article: art, st: &a.st}
	}
	a.articleList.SetItems(items)
}

func (a *App) setFeeds(feeds []*storage.Feed) {
	a.feeds = feeds
	items := make([]list.Item, len(feeds))
	for i, f := range feeds {
		items[i] = feedItem{feed: f, unread: a.unread[f.ID], st: &a.st}
	}
	a.feedList.SetItems(items)
}

// applyCategoryFilter narrows the feed pane to the selected category's
// subtree. Empty selection shows everything.
func (a *App) applyCategoryFilter() {
	if a.selectedCat == "" {
		a.setFeeds(a.allFeeds)
		return
	}
	member := a.categorySubtree(a.selectedCat)
	var feeds []*storage.Feed
	for _, f := range a.allFeeds {
		if member[f.CategoryID] {
			feeds = append(feeds, f)
		}
	}
	a.setFeeds(feeds)
}

// categorySubtree returns the IDs of a category and all its descendants.
func (a *App) categorySubtree(rootID string) map[string]bool {
	children := map[string][]string{}
	for _, cat := range a.categories {
		children[cat.ParentID] = append(children[cat.ParentID], cat.ID)
	}
	member := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if !member[child] {
				member[child] = true
				queue = append(queue, child)
			}
		}
	}
	return member
}

// rebuildCategoryRows flattens the category forest for the sidebar,
// honoring collapsed nodes.
func (a *App) rebuildCategoryRows() {
	children := map[string][]*storage.Category{}
	for _, cat := range a.categories {
		children[cat.ParentID] = append(children[cat.ParentID], cat)
	}

	unreadByCat := map[string]int{}
	for _, f := range a.allFeeds {
		unreadByCat[f.CategoryID] += a.unread[f.ID]
	}

	totalUnread := 0
	for _, n := range a.unread {
		totalUnread += n
	}

	rows := []categoryRow{{id: "", name: "All feeds", unread: totalUnread}}
	var walk func(cats []*storage.Category, depth int)
	walk = func(cats []*storage.Category, depth int) {
		for _, cat := range cats {
			unread := 0
			for id := range a.categorySubtree(cat.ID) {
				unread += unreadByCat[id]
			}
			rows = append(rows, categoryRow{
				id:        cat.ID,
				name:      cat.Name,
				depth:     depth,
				collapsed: cat.Collapsed,
				children:  len(children[cat.ID]) > 0,
				unread:    unread,
			})
			if !cat.Collapsed {
				walk(children[cat.ID], depth+1)
			}
		}
	}
	walk(children[""], 0)
	a.categoryRows = rows
	if a.categoryIdx >= len(rows) {
		a.categoryIdx = len(rows) - 1
	}
}

func (a *App) maybeAutoRefresh() tea.Cmd {
	interval := a.cfg.Feed.RefreshInterval
	if interval <= 0 || a.refreshing {
		return nil
	}
	if time.Since(a.lastAuto) < interval {
		return nil
	}
	a.lastAuto = time.Now()
	return a.refreshAll()
}

func (a *App) View() string {
	var body string
	switch a.view {
	case ViewBrowse:
		body = a.viewBrowse()
	case ViewReader:
		body = a.viewReader()
	case ViewSubscribe:
		body = a.viewSubscribe()
	case ViewDeleteConfirm:
		body = a.viewDeleteConfirm()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, a.viewStatusBar())
}

func (a *App) viewBrowse() string {
	panes := []string{}
	if catWidth := a.categoryPaneWidth(); catWidth > 0 {
		panes = append(panes, a.pane(a.viewCategories(catWidth-2), FocusCategories))
	}
	panes = append(panes, a.pane(a.feedList.View(), FocusFeeds), a.pane(a.articleList.View(), FocusArticles))

	browse := lipgloss.JoinHorizontal(lipgloss.Top, panes...)
	if a.searchMode {
		return lipgloss.JoinVertical(lipgloss.Left,
			a.st.accent.Render("/ ")+a.searchInput.View(),
			browse,
		)
	}
	return browse
}

// pane frames a browse pane, lighting the border up when it owns the focus.
func (a *App) pane(content string, f Focus) string {
	st := a.st.paneBorder
	if a.focus == f {
		st = a.st.focusBorder
	}
	return st.Render(content)
}

func (a *App) viewCategories(width int) string {
	var b strings.Builder
	b.WriteString(a.st.title.Render("› categories"))
	b.WriteString("\n\n")
	for i, row := range a.categoryRows {
		marker := "  "
		if row.children {
			marker = "▾ "
			if row.collapsed {
				marker = "▸ "
			}
		}
		line := strings.Repeat("  ", row.depth) + marker + row.name
		if row.unread > 0 {
			line += a.st.muted.Render(fmt.Sprintf(" (%d)", row.unread))
		}
		if i == a.categoryIdx && a.focus == FocusCategories {
			line = a.st.selected.Render("» ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(width).Height(a.height - 5).Render(b.String())
}

func (a *App) viewReader() string {
	if a.currentArticle == nil {
		return a.st.muted.Render("No article selected")
	}
	if a.loadingVisible() {
		return lipgloss.NewStyle().
			Width(a.width).
			Height(a.height-3).
			Align(lipgloss.Center, lipgloss.Center).
			Render(a.spin.View() + " " + a.st.muted.Render(MsgLoading))
	}
	return a.viewport.View()
}

func (a *App) viewSubscribe() string {
	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height-3).
		Align(lipgloss.Center, lipgloss.Center).
		Render(lipgloss.JoinVertical(
			lipgloss.Center,
			a.st.title.Render("› subscribe"),
			"",
			a.subscribeInput.View(),
			"",
			a.st.muted.Render("Enter to subscribe, Esc to cancel"),
		))
}

func (a *App) viewDeleteConfirm() string {
	heading := "⚠ Delete feed"
	name := "this feed"
	detail := "All its articles will be removed."
	switch {
	case a.categoryToDelete != nil:
		heading = "⚠ Delete category"
		name = a.categoryToDelete.Name
		detail = "Its feeds become uncategorized and subcategories move up."
	case a.feedToDelete != nil:
		if a.feedToDelete.Title != "" {
			name = a.feedToDelete.Title
		} else {
			name = a.feedToDelete.URL
		}
	}
	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height-3).
		Align(lipgloss.Center, lipgloss.Center).
		Render(lipgloss.JoinVertical(
			lipgloss.Center,
			a.st.errMark.Render(heading),
			"",
			name,
			a.st.muted.Render(detail),
			"",
			a.st.muted.Render("Enter: confirm • Esc: cancel"),
		))
}

func (a *App) viewStatusBar() string {
	if a.err != nil {
		msg := a.st.errMark.Render(fmt.Sprintf("✗ %v", a.err))
		a.err = nil
		a.statusMsg = ""
		return a.st.statusBar.Width(a.width).Render(msg)
	}
	if a.statusMsg != "" {
		return a.st.statusBar.Width(a.width).Render(a.statusMsg)
	}
	return a.st.statusBar.Width(a.width).Render(a.helpLine())
}

func (a *App) helpLine() string {
	switch a.view {
	case ViewReader:
		return "j/k: scroll • e: re-extract • o: open • esc: back • q: quit"
	case ViewBrowse:
		if a.searchMode {
			return "type to search • esc: exit search"
		}
		return "tab: focus • enter: open • r: refresh • R: refresh all • a: add • /: search • q: quit"
	default:
		return ""
	}
}

// renderReader re-renders the current article into the viewport using the
// cached glamour renderer.
func (a *App) renderReader() {
	article := a.currentArticle
	if article == nil {
		return
	}

	body, state := a.readerBody(article)

	var md strings.Builder
	md.WriteString(fmt.Sprintf("# %s\n\n", article.Title))
	if !article.Published.IsZero() {
		md.WriteString(fmt.Sprintf("*%s*\n\n", article.Published.Format(time.RFC1123)))
	}
	if article.URL != "" {
		md.WriteString(fmt.Sprintf("[Read online](%s)\n\n", article.URL))
	}
	md.WriteString("---\n\n")
	if state == ContentFailed {
		md.WriteString("> Full text unavailable, showing feed summary.\n\n")
	}
	md.WriteString(body)

	r, err := a.getRenderer()
	if err != nil {
		a.viewport.SetContent("Error initializing renderer: " + err.Error())
		return
	}
	rendered, err := r.Render(md.String())
	if err != nil {
		a.viewport.SetContent(md.String())
		return
	}
	a.viewport.SetContent(rendered)
	a.viewport.GotoTop()
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wrap := (a.width * 9) / 10
	if wrap > 120 {
		wrap = 120
	}
	if wrap < 40 {
		wrap = max(20, a.width-4)
	}

	if a.renderer == nil || abs(a.rendererWidth-wrap) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return nil, err
		}
		a.renderer = r
		a.rendererWidth = wrap
	}
	return a.renderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

type feedItem struct {
	feed   *storage.Feed
	unread int
	st     *styles
}

func (i feedItem) Title() string {
	title := i.feed.Title
	if title == "" {
		title = i.feed.URL
	}
	if i.feed.LastError != "" {
		title = i.st.errMark.Render("! ") + title
	}
	if i.unread > 0 {
		title += i.st.muted.Render(fmt.Sprintf(" (%d)", i.unread))
	}
	return title
}

func (i feedItem) Description() string {
	if i.feed.LastError != "" {
		return i.st.errMark.Render(i.feed.LastError)
	}
	if i.feed.LastRefreshed.IsZero() {
		return i.st.muted.Render("never refreshed")
	}
	return i.st.muted.Render("refreshed " + i.feed.LastRefreshed.Format("Jan 2, 15:04"))
}

func (i feedItem) FilterValue() string { return i.feed.Title }

type articleItem struct {
	article *storage.Article
	st      *styles
}

func (i articleItem) Title() string {
	title := i.article.Title
	if i.article.Starred {
		title = "★ " + title
	}
	if i.article.Read {
		return i.st.read.Render(title)
	}
	return i.st.unread.Render("● " + title)
}

func (i articleItem) Description() string {
	desc := truncateEnd(stripHTML(i.article.Summary), 80)
	if !i.article.Published.IsZero() {
		desc += i.st.muted.Render(" • " + i.article.Published.Format("Jan 2, 15:04"))
	}
	return desc
}

func (i articleItem) FilterValue() string { return i.article.Title }
