package ui

import (
	"errors"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/glint/internal/inspect"
	"github.com/five82/glint/internal/prefs"
	"github.com/five82/glint/internal/search"
	"github.com/five82/glint/internal/session"
	"github.com/five82/glint/internal/state"
)

type fakeController struct {
	patterns  []search.Pattern
	snapshot  state.Snapshot
	details   []bool
	refreshes int
	preview   []session.PreviewLine
}

func (f *fakeController) Snapshot() state.Snapshot {
	snap := f.snapshot
	snap.Patterns = slices.Clone(f.patterns)
	return snap
}

func (f *fakeController) Patterns() []search.Pattern { return slices.Clone(f.patterns) }

func (f *fakeController) AddPattern(p search.Pattern) error {
	for _, existing := range f.patterns {
		if existing.Key() == p.Key() {
			return session.ErrDuplicatePattern
		}
	}
	f.patterns = append(f.patterns, p)
	return nil
}

func (f *fakeController) RemovePattern(key string) bool {
	idx := slices.IndexFunc(f.patterns, func(p search.Pattern) bool { return p.Key() == key })
	if idx < 0 {
		return false
	}
	f.patterns = slices.Delete(f.patterns, idx, idx+1)
	return true
}

func (f *fakeController) SetDetails(details bool) { f.details = append(f.details, details) }

func (f *fakeController) Refresh() { f.refreshes++ }

func (f *fakeController) Preview(int) ([]session.PreviewLine, error) { return f.preview, nil }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		if !ok {
			t.Fatalf("Update returned %T, want Model", next)
		}
	}
	return m
}

func newModel(t *testing.T, ctl *fakeController, prefsPath string) Model {
	t.Helper()
	m := New(Options{Controller: ctl, PrefsPath: prefsPath})
	return send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30}, snapshotMsg(ctl.Snapshot()))
}

func TestFitBins(t *testing.T) {
	tests := []struct {
		name   string
		counts []uint64
		width  int
		want   []uint64
	}{
		{"fits", []uint64{1, 2, 3}, 5, []uint64{1, 2, 3}},
		{"merge keeps max", []uint64{1, 0, 5, 2}, 2, []uint64{1, 5}},
		{"uneven", []uint64{4, 0, 0, 0, 0, 9}, 4, []uint64{4, 0, 0, 9}},
		{"no room", []uint64{1}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fitBins(tt.counts, tt.width); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("fitBins(%v, %d) = %v, want %v", tt.counts, tt.width, got, tt.want)
			}
		})
	}
}

func TestHeatLevel(t *testing.T) {
	tests := []struct {
		count, peak uint64
		want        int
	}{
		{0, 8, -1},
		{1, 0, -1},
		{1, 8, 0},
		{8, 8, 7},
		{1, 3, 2},
		{1, 1000, 0},
	}
	for _, tt := range tests {
		if got := heatLevel(tt.count, tt.peak); got != tt.want {
			t.Fatalf("heatLevel(%d, %d) = %d, want %d", tt.count, tt.peak, got, tt.want)
		}
	}
}

func TestRenderStrip(t *testing.T) {
	if got, want := renderStrip([]uint64{0, 1, 2, 4, 8}), "·▁▂▄█"; got != want {
		t.Fatalf("renderStrip = %q, want %q", got, want)
	}
	if got, want := renderStrip([]uint64{0, 0}), "··"; got != want {
		t.Fatalf("renderStrip(empty) = %q, want %q", got, want)
	}
}

func TestBinCounts(t *testing.T) {
	m := inspect.ScaledMap{Bins: []map[string]uint64{{"error": 2}, {}, {"error": 1, "warn": 4}}}
	if got, want := binCounts(m, "error"), []uint64{2, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("binCounts = %v, want %v", got, want)
	}
}

func TestNextTheme_Cycles(t *testing.T) {
	seen := map[string]bool{}
	name := themeOrder[0]
	for range themeOrder {
		seen[name] = true
		name = NextTheme(name)
	}
	if name != themeOrder[0] || len(seen) != len(themeOrder) {
		t.Fatalf("NextTheme did not cycle through %v", themeOrder)
	}
	if got := NextTheme("unknown"); got != themeOrder[0] {
		t.Fatalf("NextTheme(unknown) = %q, want %q", got, themeOrder[0])
	}
	if got := GetTheme("unknown").Name; got != "Ember" {
		t.Fatalf("GetTheme(unknown) = %q, want Ember", got)
	}
}

func TestPatternColor_Wraps(t *testing.T) {
	th := GetTheme("Glacier")
	if got, want := th.PatternColor(len(th.Patterns)), th.Patterns[0]; got != want {
		t.Fatalf("PatternColor wrap = %q, want %q", got, want)
	}
	if got := (Theme{Accent: "#fff"}).PatternColor(3); got != "#fff" {
		t.Fatalf("PatternColor without palette = %q, want accent", got)
	}
}

func TestTruncateMiddle_KeepsEnd(t *testing.T) {
	got := truncateMiddle("/var/log/services/very/deep/application.log", 20)
	if len([]rune(got)) != 20 {
		t.Fatalf("truncateMiddle length = %d, want 20 (%q)", len([]rune(got)), got)
	}
	if !strings.HasSuffix(got, "plication.log") || !strings.Contains(got, "…") {
		t.Fatalf("truncateMiddle = %q, want ellipsis and path end", got)
	}
	if got := truncateMiddle("short.log", 20); got != "short.log" {
		t.Fatalf("truncateMiddle(short) = %q", got)
	}
}

func TestModel_AddPatternFromInput(t *testing.T) {
	ctl := &fakeController{}
	m := newModel(t, ctl, "")

	m = send(t, m, runes("/"))
	if !m.entering {
		t.Fatalf("expected pattern entry after /")
	}
	m = send(t, m, runes("/err/i"), tea.KeyMsg{Type: tea.KeyEnter})

	if m.entering {
		t.Fatalf("entry still open after enter")
	}
	want := []search.Pattern{{Source: "err", CaseInsensitive: true}}
	if !reflect.DeepEqual(ctl.patterns, want) {
		t.Fatalf("patterns = %v, want %v", ctl.patterns, want)
	}

	m = send(t, m, runes("/"), runes("err"), tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.flash, "already active") {
		t.Fatalf("flash = %q, want duplicate notice", m.flash)
	}
}

func TestModel_EscCancelsEntry(t *testing.T) {
	ctl := &fakeController{}
	m := newModel(t, ctl, "")

	m = send(t, m, runes("/"), runes("x"), tea.KeyMsg{Type: tea.KeyEsc})

	if m.entering || len(ctl.patterns) != 0 {
		t.Fatalf("entering = %v, patterns = %v; want closed and unchanged", m.entering, ctl.patterns)
	}
}

func TestModel_EmptyEntryShowsError(t *testing.T) {
	ctl := &fakeController{}
	m := newModel(t, ctl, "")

	m = send(t, m, runes("/"), tea.KeyMsg{Type: tea.KeyEnter})

	if m.flash != search.ErrEmptyPattern.Error() {
		t.Fatalf("flash = %q, want %q", m.flash, search.ErrEmptyPattern)
	}
}

func TestModel_RemoveSelected(t *testing.T) {
	ctl := &fakeController{patterns: []search.Pattern{{Source: "a"}, {Source: "b"}, {Source: "c"}}}
	m := newModel(t, ctl, "")

	m = send(t, m, runes("j"), runes("j"), runes("j"))
	if m.selected != 2 {
		t.Fatalf("selected = %d, want 2", m.selected)
	}
	m = send(t, m, runes("x"))

	if got := ctl.patterns; !reflect.DeepEqual(got, []search.Pattern{{Source: "a"}, {Source: "b"}}) {
		t.Fatalf("patterns = %v, want a, b", got)
	}
	if m.selected != 1 {
		t.Fatalf("selected = %d, want 1", m.selected)
	}
}

func TestModel_RemoveSelectedUsesShownRows(t *testing.T) {
	ctl := &fakeController{patterns: []search.Pattern{{Source: "a"}, {Source: "b"}, {Source: "c"}}}
	m := newModel(t, ctl, "")
	// Added since the last snapshot, so not on screen yet.
	ctl.patterns = append([]search.Pattern{{Source: "new"}}, ctl.patterns...)

	m = send(t, m, runes("x"))

	want := []search.Pattern{{Source: "new"}, {Source: "b"}, {Source: "c"}}
	if !reflect.DeepEqual(ctl.patterns, want) {
		t.Fatalf("patterns = %v, want %v", ctl.patterns, want)
	}
	if got := m.snapshot.Patterns; !reflect.DeepEqual(got, []search.Pattern{{Source: "b"}, {Source: "c"}}) {
		t.Fatalf("shown patterns = %v, want b, c", got)
	}
}

func TestModel_ToggleDetailsAndThemeSavePrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	ctl := &fakeController{patterns: []search.Pattern{{Source: "error"}}}
	m := newModel(t, ctl, path)

	m = send(t, m, runes("d"), runes("T"))

	if !reflect.DeepEqual(ctl.details, []bool{true}) {
		t.Fatalf("SetDetails calls = %v, want [true]", ctl.details)
	}
	got, err := prefs.Load(path)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	want := prefs.Prefs{Theme: m.theme.Name, Details: true, Patterns: []string{"/error/"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("prefs = %+v, want %+v", got, want)
	}
	if m.theme.Name != "Glacier" {
		t.Fatalf("theme = %q, want Glacier", m.theme.Name)
	}
}

func TestModel_RefreshKey(t *testing.T) {
	ctl := &fakeController{}
	m := newModel(t, ctl, "")

	_, cmd := m.Update(runes("r"))

	if ctl.refreshes != 1 || cmd == nil {
		t.Fatalf("refreshes = %d, cmd nil = %v; want one refresh and a fetch", ctl.refreshes, cmd == nil)
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := newModel(t, &fakeController{}, "")

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatalf("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
}

func TestModel_ViewRendersStripsAndPreview(t *testing.T) {
	ctl := &fakeController{
		patterns: []search.Pattern{{Source: "error"}},
		snapshot: state.Snapshot{
			File: "/var/log/app.log",
			Size: 2048,
			Rows: 1200,
			Map: inspect.ScaledMap{
				Bins:  []map[string]uint64{{"error": 1}, {}, {"error": 8}},
				Stats: map[string]uint64{"error": 9},
			},
		},
		preview: []session.PreviewLine{{Text: "error: disk full", Row: 1199, Patterns: []string{"error"}}},
	}
	m := newModel(t, ctl, "")
	m = send(t, m, previewMsg{lines: ctl.preview})

	view := m.View()
	for _, want := range []string{"glint", "app.log", "2.0 KiB", "1,200 rows", "/error/", "▁·█", "error: disk full"} {
		if !strings.Contains(view, want) {
			t.Fatalf("View missing %q:\n%s", want, view)
		}
	}
}

func TestModel_StalledSnapshotShowsError(t *testing.T) {
	ctl := &fakeController{snapshot: state.Snapshot{LastError: errors.New("rg exploded"), ConsecutiveFailures: 3}}
	m := newModel(t, ctl, "")

	view := m.View()
	if !strings.Contains(view, "rg exploded") || !strings.Contains(view, "3 failed refreshes") {
		t.Fatalf("View missing stalled state:\n%s", view)
	}
}

func TestModel_HelpClosesOnAnyKey(t *testing.T) {
	m := newModel(t, &fakeController{}, "")

	m = send(t, m, runes("?"))
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("help not shown")
	}
	m = send(t, m, runes("z"))
	if m.showHelp {
		t.Fatalf("help still shown")
	}
}
