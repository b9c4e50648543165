package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/skimreader/skim/internal/config"
)

type styles struct {
	accent      lipgloss.Style
	muted       lipgloss.Style
	errMark     lipgloss.Style
	unread      lipgloss.Style
	read        lipgloss.Style
	title       lipgloss.Style
	selected    lipgloss.Style
	statusBar   lipgloss.Style
	paneBorder  lipgloss.Style
	focusBorder lipgloss.Style
}

func newStyles(cfg *config.Config) styles {
	accent := lipgloss.Color(cfg.UI.Colors.Accent)
	muted := lipgloss.Color(cfg.UI.Colors.Muted)
	errCol := lipgloss.Color(cfg.UI.Colors.Error)
	unread := lipgloss.Color(cfg.UI.Colors.Unread)

	return styles{
		accent:      lipgloss.NewStyle().Foreground(accent),
		muted:       lipgloss.NewStyle().Foreground(muted),
		errMark:     lipgloss.NewStyle().Foreground(errCol).Bold(true),
		unread:      lipgloss.NewStyle().Foreground(unread).Bold(true),
		read:        lipgloss.NewStyle().Foreground(muted),
		title:       lipgloss.NewStyle().Foreground(accent).Bold(true),
		selected:    lipgloss.NewStyle().Foreground(accent).Bold(true),
		statusBar:   lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		paneBorder:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted),
		focusBorder: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent),
	}
}
