package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/glint/internal/inspect"
)

const (
	heatRamp  = "▁▂▃▄▅▆▇█"
	heatEmpty = "·"
)

var heatGlyphs = []rune(heatRamp)

// binCounts extracts the per-bin counts of one pattern key.
func binCounts(m inspect.ScaledMap, key string) []uint64 {
	counts := make([]uint64, len(m.Bins))
	for i, bin := range m.Bins {
		counts[i] = bin[key]
	}
	return counts
}

// fitBins shrinks counts to at most width cells. Merged cells keep the
// largest count so a single busy bin stays visible.
func fitBins(counts []uint64, width int) []uint64 {
	if width <= 0 {
		return nil
	}
	if len(counts) <= width {
		return counts
	}
	out := make([]uint64, width)
	for i, c := range counts {
		j := i * width / len(counts)
		out[j] = max(out[j], c)
	}
	return out
}

// heatLevel maps count onto the glyph ramp relative to peak. Zero counts
// return -1.
func heatLevel(count, peak uint64) int {
	if count == 0 || peak == 0 {
		return -1
	}
	n := uint64(len(heatGlyphs))
	level := int((count*n+peak-1)/peak) - 1
	return min(max(level, 0), len(heatGlyphs)-1)
}

// renderStrip draws counts as one line of ramp glyphs scaled to their own
// peak.
func renderStrip(counts []uint64) string {
	var peak uint64
	for _, c := range counts {
		peak = max(peak, c)
	}

	var b strings.Builder
	for _, c := range counts {
		level := heatLevel(c, peak)
		if level < 0 {
			b.WriteString(heatEmpty)
			continue
		}
		b.WriteRune(heatGlyphs[level])
	}
	return b.String()
}

// renderHeatRow renders the label, strip and total for pattern i.
func (m Model) renderHeatRow(i int, label string, counts []uint64, total uint64, selected bool) string {
	styles := m.theme.Styles()

	stripWidth := m.width - labelWidth - totalWidth - 4
	strip := renderStrip(fitBins(counts, stripWidth))
	color := lipgloss.Color(m.theme.PatternColor(i))

	marker := "  "
	labelStyle := styles.Text
	if selected {
		marker = styles.Accent.Render("▌ ")
		labelStyle = styles.Text.Bold(true)
	}

	return marker +
		labelStyle.Width(labelWidth).Render(truncate(label, labelWidth-1)) +
		lipgloss.NewStyle().Foreground(color).Render(strip) +
		styles.Muted.Width(totalWidth+2).Align(lipgloss.Right).Render(formatCount(total))
}
