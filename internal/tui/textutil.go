package tui

// truncateEnd shortens s to at most limit characters, appending an ellipsis
// when truncation occurs. Operates on runes so multibyte text never gets
// split mid-character.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}
