package tui

// View is the top-level screen mode.
type View int

const (
	ViewBrowse View = iota
	ViewReader
	ViewSubscribe
	ViewDeleteConfirm
)

// Focus selects which Browse pane receives navigation keys.
type Focus int

const (
	FocusCategories Focus = iota
	FocusFeeds
	FocusArticles
)

func (f Focus) String() string {
	switch f {
	case FocusCategories:
		return "categories"
	case FocusFeeds:
		return "feeds"
	case FocusArticles:
		return "articles"
	default:
		return "unknown"
	}
}

// categoryRow is one row of the flattened category tree, rendered in the
// sidebar. A nil-ID row is the synthetic "All feeds" entry.
type categoryRow struct {
	id        string
	name      string
	depth     int
	collapsed bool
	children  bool
	unread    int
}
