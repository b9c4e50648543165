package tui

import (
	"fmt"
	"time"
)

const statusTTL = 4 * time.Second

// Canonical short status messages.
const (
	MsgRefreshing      = "Refreshing…"
	MsgLoading         = "Loading article…"
	MsgSearching       = "Searching…"
	MsgSubscribed      = "Feed added"
	MsgDeleted         = "Feed deleted"
	MsgCategoryDeleted = "Category deleted"
	MsgFeedMoved       = "Feed moved"
)

func MsgRefreshProgress(done, total int) string {
	return fmt.Sprintf("Refreshing… %d/%d", done, total)
}

func MsgRefreshSummary(ok, failed, skipped, added int) string {
	s := fmt.Sprintf("Refreshed: %d feeds • %d new articles", ok, added)
	if failed > 0 {
		s += fmt.Sprintf(" • %d failed", failed)
	}
	if skipped > 0 {
		s += fmt.Sprintf(" • %d already refreshing", skipped)
	}
	return s
}

func MsgMarkedRead(count int) string {
	if count == 1 {
		return "1 article marked read"
	}
	return fmt.Sprintf("%d articles marked read", count)
}

func MsgExtractionFailed(err error) string {
	return fmt.Sprintf("Extraction failed (%v), showing summary", err)
}

// setStatus shows a transient message; ttl 0 uses the default expiry.
func (a *App) setStatus(msg string, ttl time.Duration) {
	if ttl == 0 {
		ttl = statusTTL
	}
	a.statusMsg = msg
	a.statusExpiry = time.Now().Add(ttl)
}

// clearExpiredStatus drops the status message once its TTL passes. Called
// from the tick handler.
func (a *App) clearExpiredStatus() {
	if a.statusMsg != "" && time.Now().After(a.statusExpiry) {
		a.statusMsg = ""
	}
}
