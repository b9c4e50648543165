package tui

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skimreader/skim/internal/content"
	"github.com/skimreader/skim/internal/storage"
	"github.com/skimreader/skim/internal/task"
)

func TestContentStateMachine(t *testing.T) {
	app := newTestApp(t)
	_, articles := seedArticles(t, app, "http://example.com/feed.xml", 1)
	art := articles[0]

	require.Equal(t, ContentIdle, app.contentFor(art.ID).state)

	app.requestContent(art, false)
	assert.Equal(t, ContentLoading, app.contentFor(art.ID).state)

	app.applyContentResult(contentLoadedMsg{articleID: art.ID, content: "full text"})
	entry := app.contentFor(art.ID)
	assert.Equal(t, ContentLoaded, entry.state)
	assert.Equal(t, "full text", entry.text)

	// Loaded is terminal for implicit requests.
	app.requestContent(art, false)
	assert.Equal(t, ContentLoaded, app.contentFor(art.ID).state)

	// An explicit retry re-enters Loading.
	app.requestContent(art, true)
	assert.Equal(t, ContentLoading, app.contentFor(art.ID).state)
}

func TestContentFailureFallsBackToSummary(t *testing.T) {
	app := newTestApp(t)
	_, articles := seedArticles(t, app, "http://example.com/feed.xml", 1)
	art := articles[0]
	app.currentArticle = art
	app.view = ViewReader

	app.requestContent(art, false)
	app.applyContentResult(contentLoadedMsg{articleID: art.ID, err: errors.New("service down")})

	entry := app.contentFor(art.ID)
	assert.Equal(t, ContentFailed, entry.state)

	body, state := app.readerBody(art)
	assert.Equal(t, ContentFailed, state)
	assert.Equal(t, "the summary", body, "reader must fall back to the stored summary")
	assert.Contains(t, app.statusMsg, "showing summary")
}

func TestContentStaleResultDoesNotSwitchView(t *testing.T) {
	app := newTestApp(t)
	_, articles := seedArticles(t, app, "http://example.com/feed.xml", 2)
	first, second := articles[0], articles[1]

	app.requestContent(first, false)

	// The user has moved on before the first load resolves.
	app.currentArticle = second
	app.view = ViewReader
	app.renderReader()
	before := app.viewport.View()

	app.applyContentResult(contentLoadedMsg{articleID: first.ID, content: "late arrival"})

	// The result is recorded for its own article.
	assert.Equal(t, ContentLoaded, app.contentFor(first.ID).state)
	assert.Equal(t, "late arrival", app.contentFor(first.ID).text)
	// The on-screen article is untouched.
	assert.Equal(t, before, app.viewport.View())
	assert.Equal(t, second.ID, app.currentArticle.ID)
}

func TestContentPersistedAcrossSessions(t *testing.T) {
	app := newTestApp(t)
	_, articles := seedArticles(t, app, "http://example.com/feed.xml", 1)
	art := articles[0]

	app.requestContent(art, false)
	app.applyContentResult(contentLoadedMsg{articleID: art.ID, content: "persisted body"})

	stored, err := app.store.GetArticle(art.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted body", stored.Content)

	// A fresh session short-circuits to Loaded from the stored copy.
	other := newTestApp(t)
	other.requestContent(stored, false)
	entry := other.contentFor(stored.ID)
	assert.Equal(t, ContentLoaded, entry.state)
	assert.Equal(t, "persisted body", entry.text)
}

func TestContentArticleWithoutLinkFailsFast(t *testing.T) {
	app := newTestApp(t)
	art := &storage.Article{ID: "feed1:x", FeedID: "feed1", Summary: "only summary"}

	app.requestContent(art, false)
	entry := app.contentFor(art.ID)
	assert.Equal(t, ContentFailed, entry.state)
	assert.ErrorIs(t, entry.err, errNoLink)
}

func TestContentExtractionDeliversThroughPool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("extracted over http"))
	}))
	defer server.Close()

	app := newTestApp(t)
	app.cfg.Extractor.BaseURL = server.URL
	app.extractor = content.NewExtractor(app.cfg)
	_, articles := seedArticles(t, app, "http://example.com/feed.xml", 1)
	art := articles[0]

	app.requestContent(art, false)

	select {
	case ev := <-app.pool.Events():
		msg, ok := ev.(contentLoadedMsg)
		require.True(t, ok, "expected contentLoadedMsg, got %T", ev)
		require.NoError(t, msg.err)
		assert.Equal(t, art.ID, msg.articleID)
		assert.Equal(t, "extracted over http", msg.content)

		app.applyContentResult(msg)
		assert.Equal(t, ContentLoaded, app.contentFor(art.ID).state)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for extraction result")
	}
}

func TestContentCrashedTaskSurfacesStatus(t *testing.T) {
	app := newTestApp(t)

	app.Update(task.Crashed{Task: "content:x", Err: errors.New("boom")})
	assert.Contains(t, app.statusMsg, "content:x")
}
