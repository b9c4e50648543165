package feed

import (
	"errors"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <link>http://example.com</link>
    <item>
      <title>First Post</title>
      <link>http://example.com/first</link>
      <guid>post-1</guid>
      <description>Summary of the first post</description>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second Post</title>
      <link>http://example.com/second</link>
      <guid>post-2</guid>
      <description>Summary of the second post</description>
      <pubDate>Tue, 03 Jun 2025 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <link href="http://example.org/"/>
  <updated>2025-06-03T18:30:02Z</updated>
  <entry>
    <title>Atom Entry</title>
    <link href="http://example.org/entry"/>
    <id>urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a</id>
    <updated>2025-06-03T18:30:02Z</updated>
    <content type="html">Full entry content</content>
  </entry>
</feed>`

func TestParser_ParseRSS(t *testing.T) {
	result, err := NewParser().Parse([]byte(sampleRSS), "feed1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Title != "Example Blog" {
		t.Errorf("expected title Example Blog, got %s", result.Title)
	}
	if result.SiteURL != "http://example.com" {
		t.Errorf("expected site URL http://example.com, got %s", result.SiteURL)
	}
	if len(result.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(result.Articles))
	}

	first := result.Articles[0]
	if first.Title != "First Post" {
		t.Errorf("expected title First Post, got %s", first.Title)
	}
	if first.FeedID != "feed1" {
		t.Errorf("expected feed ID feed1, got %s", first.FeedID)
	}
	if first.GUID != "post-1" {
		t.Errorf("expected guid post-1, got %s", first.GUID)
	}
	if first.Summary != "Summary of the first post" {
		t.Errorf("unexpected summary %q", first.Summary)
	}
	want := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Errorf("expected published %v, got %v", want, first.Published)
	}
	if first.ID == "" {
		t.Error("expected derived article ID")
	}
}

func TestParser_ParseAtom(t *testing.T) {
	result, err := NewParser().Parse([]byte(sampleAtom), "feed2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Title != "Atom Example" {
		t.Errorf("expected title Atom Example, got %s", result.Title)
	}
	if len(result.Articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(result.Articles))
	}

	entry := result.Articles[0]
	// No description: content body stands in as the summary.
	if entry.Summary != "Full entry content" {
		t.Errorf("expected content fallback, got %q", entry.Summary)
	}
	// No pubDate: the updated timestamp stands in.
	if entry.Published.IsZero() {
		t.Error("expected updated timestamp fallback")
	}
}

func TestParser_ParseInvalid(t *testing.T) {
	_, err := NewParser().Parse([]byte("not a feed at all"), "feed3")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Kind != ErrParse {
		t.Errorf("expected kind %s, got %s", ErrParse, fe.Kind)
	}
}

func TestParser_ParseDeterministicIDs(t *testing.T) {
	a, err := NewParser().Parse([]byte(sampleRSS), "feed1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewParser().Parse([]byte(sampleRSS), "feed1")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Articles {
		if a.Articles[i].ID != b.Articles[i].ID {
			t.Errorf("article %d: IDs differ across parses", i)
		}
	}
}
