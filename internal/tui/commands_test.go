package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skimreader/skim/internal/storage"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<p>hello <b>world</b></p>", "hello world"},
		{"a &amp; b &lt;c&gt;", "a & b <c>"},
		{"line\none   two\t three", "line one two three"},
		{"<img src='x'>&nbsp;trailing  ", "trailing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripHTML(tt.in))
	}
}

func TestLoadArticlesHonorsFilter(t *testing.T) {
	app := newTestApp(t)
	f, articles := seedArticles(t, app, "http://example.com/feed.xml", 3)
	require.NoError(t, app.store.SetArticleFlag(articles[0].ID, storage.FlagRead, true))

	app.filter = storage.FilterUnread
	msg := app.loadArticles(f.ID)()
	loaded, ok := msg.(articlesLoadedMsg)
	require.True(t, ok)
	assert.Len(t, loaded.articles, 2)
}

func TestMarkAllRead(t *testing.T) {
	app := newTestApp(t)
	f, _ := seedArticles(t, app, "http://example.com/feed.xml", 3)

	msg := app.markAllRead(f.ID)()
	marked, ok := msg.(markedReadMsg)
	require.True(t, ok)
	require.NoError(t, marked.err)
	assert.Equal(t, 3, marked.count)

	unread, err := app.store.CountUnread()
	require.NoError(t, err)
	assert.Equal(t, 0, unread[f.ID])
}

func TestSubscribeDuplicate(t *testing.T) {
	app := newTestApp(t)
	seedArticles(t, app, "http://example.com/feed.xml", 0)

	msg := app.subscribe("http://example.com/feed.xml")()
	sub, ok := msg.(subscribedMsg)
	require.True(t, ok)
	assert.Error(t, sub.err)
	assert.Contains(t, sub.err.Error(), "already subscribed")
}

func TestStatusMessages(t *testing.T) {
	assert.Equal(t, "Refreshing… 3/12", MsgRefreshProgress(3, 12))

	summary := MsgRefreshSummary(10, 2, 1, 37)
	assert.Contains(t, summary, "10 feeds")
	assert.Contains(t, summary, "37 new articles")
	assert.Contains(t, summary, "2 failed")
	assert.Contains(t, summary, "1 already refreshing")

	clean := MsgRefreshSummary(5, 0, 0, 0)
	assert.NotContains(t, clean, "failed")
	assert.NotContains(t, clean, "refreshing")
}
