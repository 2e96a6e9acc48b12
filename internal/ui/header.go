package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// renderHeader renders the status bar: file, size, rows, tasks and mode.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	file := snap.File
	if file == "" {
		file = "waiting for data"
	}

	parts := []string{
		styles.Logo.Render("glint"),
		styles.Text.Render(truncateMiddle(file, max(m.width/3, 12))),
		styles.Muted.Render(humanize.IBytes(snap.Size)),
		styles.Muted.Render(formatCount(snap.Rows) + " rows"),
	}
	if snap.Inflight > 0 {
		parts = append(parts, styles.Warning.Render(fmt.Sprintf("%d inspecting", snap.Inflight)))
	}
	mode := "approx"
	if snap.Details {
		mode = "exact"
	}
	parts = append(parts, styles.Faint.Render(mode))
	if snap.IsStalled() {
		parts = append(parts, styles.Danger.Render(fmt.Sprintf("%d failed refreshes", snap.ConsecutiveFailures)))
	}
	if !m.lastUpdated.IsZero() && !snap.LastUpdated.IsZero() {
		parts = append(parts, styles.Faint.Render(snap.LastUpdated.Format("15:04:05")))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderCommandBar renders the key hints line.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	var (
		hints []string
		used  int
	)
	for _, b := range m.keys.hints() {
		hint := renderHint(styles, b)
		w := lipgloss.Width(hint) + 2
		if m.width > 0 && used+w > m.width-2 {
			break
		}
		hints = append(hints, hint)
		used += w
	}
	return styles.Footer.Width(m.width).Render(strings.Join(hints, "  "))
}

func renderHint(styles Styles, b key.Binding) string {
	h := b.Help()
	return styles.KeyHint.Render(h.Key) + " " + styles.Muted.Render(h.Desc)
}
