package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/glint/internal/prefs"
	"github.com/five82/glint/internal/search"
	"github.com/five82/glint/internal/session"
	"github.com/five82/glint/internal/state"
)

const (
	labelWidth = 18
	totalWidth = 9

	// chrome is the number of fixed lines around the strips and preview:
	// header, command bar, two rules and the input line.
	chrome = 5
)

// Controller is the part of a session the UI drives.
type Controller interface {
	Snapshot() state.Snapshot
	Patterns() []search.Pattern
	AddPattern(p search.Pattern) error
	RemovePattern(key string) bool
	SetDetails(details bool)
	Refresh()
	Preview(n int) ([]session.PreviewLine, error)
}

// Options configures the UI.
type Options struct {
	Controller Controller
	PollTick   time.Duration
	TailLines  int
	ThemeName  string
	PrefsPath  string
	Details    bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctl       Controller
	prefsPath string
	pollTick  time.Duration
	tailLines int
	keys      keyMap

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	selected int
	details  bool
	flash    string

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	preview     []session.PreviewLine

	// Pattern entry
	entering bool
	input    textinput.Model

	previewViewport viewport.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}
	tailLines := opts.TailLines
	if tailLines <= 0 {
		tailLines = 200
	}

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "pattern, /regex/i or (?i)regex"
	input.CharLimit = 512

	return Model{
		ctl:       opts.Controller,
		prefsPath: opts.PrefsPath,
		pollTick:  pollTick,
		tailLines: tailLines,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(opts.ThemeName),
		details:   opts.Details,
		input:     input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.ctl != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.ctl), fetchPreviewCmd(m.ctl, m.tailLines))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.previewViewport = viewport.New(msg.Width, m.previewHeight())
		}
		m.ready = true
		m.resizePreview()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampSelection()
		m.resizePreview()
		return m, nil

	case previewMsg:
		if msg.err != nil {
			m.flash = "preview: " + msg.err.Error()
			return m, nil
		}
		m.preview = msg.lines
		m.updatePreview()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.entering {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.updatePreview()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.ctl != nil {
			m.ctl.Refresh()
			return m, tea.Batch(fetchSnapshotCmd(m.ctl), fetchPreviewCmd(m.ctl, m.tailLines))
		}
		return m, nil

	case key.Matches(msg, m.keys.AddPattern):
		m.entering = true
		m.flash = ""
		m.input.Reset()
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.RemovePattern):
		return m.removeSelected()

	case key.Matches(msg, m.keys.ToggleDetails):
		m.details = !m.details
		if m.ctl != nil {
			m.ctl.SetDetails(m.details)
		}
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.snapshot.Patterns)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.previewViewport.HalfPageUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.previewViewport.HalfPageDown()
		return m, nil
	}

	return m, nil
}

// handleInputKey routes keys to the pattern entry line.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.entering = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		m.entering = false
		m.input.Blur()
		return m.addPattern(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) addPattern(text string) (tea.Model, tea.Cmd) {
	if m.ctl == nil {
		return m, nil
	}
	p, err := search.ParsePattern(text)
	if err != nil {
		m.flash = err.Error()
		return m, nil
	}
	if err := m.ctl.AddPattern(p); err != nil {
		if errors.Is(err, session.ErrDuplicatePattern) {
			m.flash = fmt.Sprintf("%s is already active", p)
		} else {
			m.flash = err.Error()
		}
		return m, nil
	}
	m.flash = ""
	m.savePrefs()
	return m, fetchSnapshotCmd(m.ctl)
}

func (m Model) removeSelected() (tea.Model, tea.Cmd) {
	if m.ctl == nil {
		return m, nil
	}
	// The cursor indexes the rows on screen, which may lag the controller.
	shown := m.snapshot.Patterns
	if m.selected < 0 || m.selected >= len(shown) {
		return m, nil
	}
	m.ctl.RemovePattern(shown[m.selected].Key())
	m.snapshot.Patterns = slices.Delete(slices.Clone(shown), m.selected, m.selected+1)
	m.clampSelection()
	m.savePrefs()
	return m, fetchSnapshotCmd(m.ctl)
}

// savePrefs persists theme, details and the active patterns. Failures are
// ignored; preferences are best effort.
func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, Details: m.details}
	if m.ctl != nil {
		for _, pattern := range m.ctl.Patterns() {
			p.Patterns = append(p.Patterns, pattern.String())
		}
	}
	_ = prefs.Save(m.prefsPath, p)
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.ctl != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.ctl), fetchPreviewCmd(m.ctl, m.tailLines))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) clampSelection() {
	if n := len(m.snapshot.Patterns); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

// previewHeight is what is left for the tail preview after the strips.
func (m Model) previewHeight() int {
	return max(m.height-chrome-max(len(m.snapshot.Patterns), 1), 1)
}

func (m *Model) resizePreview() {
	if !m.ready {
		return
	}
	m.previewViewport.Width = m.width
	m.previewViewport.Height = m.previewHeight()
	m.updatePreview()
}

// updatePreview re-renders the tail lines, keeping the view pinned to the
// bottom when it already was.
func (m *Model) updatePreview() {
	if !m.ready {
		return
	}
	atBottom := m.previewViewport.AtBottom()
	m.previewViewport.SetContent(m.renderPreview())
	if atBottom {
		m.previewViewport.GotoBottom()
	}
}

// renderPreview marks each tail line with the colours of the patterns that
// matched it.
func (m Model) renderPreview() string {
	styles := m.theme.Styles()
	colors := make(map[string]int, len(m.snapshot.Patterns))
	for i, p := range m.snapshot.Patterns {
		colors[p.Key()] = i
	}
	markerWidth := max(len(m.snapshot.Patterns), 1)

	var b strings.Builder
	for i, line := range m.preview {
		if i > 0 {
			b.WriteString("\n")
		}
		marks := 0
		for _, k := range line.Patterns {
			idx, ok := colors[k]
			if !ok {
				continue
			}
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.PatternColor(idx))).Render("●"))
			marks++
		}
		b.WriteString(strings.Repeat(" ", max(markerWidth-marks, 0)+1))

		text := truncate(line.Text, m.width-markerWidth-1)
		if len(line.Patterns) > 0 {
			b.WriteString(styles.Text.Render(text))
		} else {
			b.WriteString(styles.Muted.Render(text))
		}
	}
	return b.String()
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	styles := m.theme.Styles()
	rule := styles.Faint.Render(strings.Repeat("─", max(m.width, 0)))

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderStrips())
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(m.previewViewport.View())
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(m.renderInputLine())
	return b.String()
}

// renderStrips renders one heat row per pattern.
func (m Model) renderStrips() string {
	styles := m.theme.Styles()
	if len(m.snapshot.Patterns) == 0 {
		return styles.Muted.Render("  No patterns. Press / to add one.")
	}

	rows := make([]string, len(m.snapshot.Patterns))
	for i, p := range m.snapshot.Patterns {
		counts := binCounts(m.snapshot.Map, p.Key())
		rows[i] = m.renderHeatRow(i, p.String(), counts, m.snapshot.Total(p), i == m.selected)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderInputLine() string {
	styles := m.theme.Styles()
	switch {
	case m.entering:
		return m.input.View()
	case m.flash != "":
		return styles.Danger.Render(truncate(m.flash, m.width))
	case m.snapshot.IsStalled() && m.snapshot.LastError != nil:
		return styles.Warning.Render(truncate("refresh failing: "+m.snapshot.LastError.Error(), m.width))
	default:
		return ""
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type previewMsg struct {
	lines []session.PreviewLine
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(ctl Controller) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(ctl.Snapshot())
	}
}

func fetchPreviewCmd(ctl Controller, n int) tea.Cmd {
	return func() tea.Msg {
		lines, err := ctl.Preview(n)
		return previewMsg{lines: lines, err: err}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
