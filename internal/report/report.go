package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/five82/glint/internal/state"
)

const msgNoPatterns = "No patterns to report"

// Options controls what Write renders.
type Options struct {
	// Bins adds the per-bin table.
	Bins bool
	// KeepEmpty keeps bins without matches in the per-bin table.
	KeepEmpty bool
}

// Write renders a summary of snap to w: a header line, per-pattern totals
// and, when requested, the per-bin counts.
func Write(w io.Writer, snap state.Snapshot, opts Options) error {
	var parts []string
	parts = append(parts, summary(snap))

	if len(snap.Patterns) == 0 {
		parts = append(parts, msgNoPatterns)
	} else {
		parts = append(parts, totals(snap))
		if opts.Bins && len(snap.Map.Bins) > 0 {
			parts = append(parts, bins(snap, opts.KeepEmpty))
		}
	}
	if snap.LastError != nil {
		parts = append(parts, "error: "+snap.LastError.Error())
	}

	if _, err := io.WriteString(w, strings.Join(parts, "\n\n")+"\n"); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func summary(snap state.Snapshot) string {
	mode := "first match per bin"
	if snap.Details {
		mode = "exact"
	}
	return fmt.Sprintf("%s: %s, %s rows, %d bins (%s)",
		snap.File,
		humanize.IBytes(snap.Size),
		humanize.Comma(clampInt(snap.Rows)),
		len(snap.Map.Bins),
		mode,
	)
}

func totals(snap state.Snapshot) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Pattern", "Matches", "Share", "Peak bin"})

	var all uint64
	for _, p := range snap.Patterns {
		all += snap.Total(p)
	}
	for _, p := range snap.Patterns {
		total := snap.Total(p)
		share := "-"
		if snap.Rows > 0 {
			share = fmt.Sprintf("%.2f%%", float64(total)*100/float64(snap.Rows))
		}
		tbl.AppendRow(table.Row{p.String(), humanize.Comma(clampInt(total)), share, peakBin(snap, p.Key())})
	}
	tbl.AppendFooter(table.Row{"Total", humanize.Comma(clampInt(all)), "", ""})
	return tbl.Render()
}

// peakBin names the first 1-based bin holding the largest count of key.
func peakBin(snap state.Snapshot, key string) string {
	peak := snap.Map.Max(key)
	if peak == 0 {
		return "-"
	}
	for i, bin := range snap.Map.Bins {
		if bin[key] == peak {
			return fmt.Sprintf("%d (%s)", i+1, humanize.Comma(clampInt(peak)))
		}
	}
	return "-"
}

func bins(snap state.Snapshot, keepEmpty bool) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	header := table.Row{"Bin"}
	for _, p := range snap.Patterns {
		header = append(header, p.String())
	}
	tbl.AppendHeader(header)

	omitted := 0
	for i, bin := range snap.Map.Bins {
		row := table.Row{i + 1}
		empty := true
		for _, p := range snap.Patterns {
			n := bin[p.Key()]
			if n > 0 {
				empty = false
			}
			row = append(row, humanize.Comma(clampInt(n)))
		}
		if empty && !keepEmpty {
			omitted++
			continue
		}
		tbl.AppendRow(row)
	}
	if omitted > 0 {
		tbl.AppendFooter(table.Row{fmt.Sprintf("%d empty bins omitted", omitted)})
	}
	return tbl.Render()
}

func clampInt(n uint64) int64 {
	if n > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(n)
}
