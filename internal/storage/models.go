package storage

import (
	"time"
)

type Feed struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	SiteURL       string    `json:"site_url"`
	CategoryID    string    `json:"category_id,omitempty"`
	LastRefreshed time.Time `json:"last_refreshed"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Category is a user-defined grouping node for feeds. ParentID links
// categories into a forest; an empty ParentID marks a root.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	Collapsed bool   `json:"collapsed"`
}

type Article struct {
	ID        string    `json:"id"`
	FeedID    string    `json:"feed_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	GUID      string    `json:"guid"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content,omitempty"`
	Published time.Time `json:"published"`
	Read      bool      `json:"read"`
	Starred   bool      `json:"starred"`
}

// Flag names accepted by SetArticleFlag.
const (
	FlagRead    = "read"
	FlagStarred = "starred"
)

// ArticleFilter narrows ListArticles results.
type ArticleFilter int

const (
	FilterAll ArticleFilter = iota
	FilterUnread
	FilterStarred
)
