package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors for the UI.
type Theme struct {
	Name string

	Background string
	Surface    string
	Selection  string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Warning string
	Danger  string

	// Patterns colors heat strips; pattern i uses Patterns[i%len].
	Patterns []string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Header    lipgloss.Style
	Footer    lipgloss.Style
	Logo      lipgloss.Style
	Text      lipgloss.Style
	Muted     lipgloss.Style
	Faint     lipgloss.Style
	Accent    lipgloss.Style
	Warning   lipgloss.Style
	Danger    lipgloss.Style
	Selected  lipgloss.Style
	KeyHint   lipgloss.Style
	StripCell lipgloss.Style
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),
		Text:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		Faint:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		Danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Selection)).
			Foreground(lipgloss.Color(t.Text)),
		KeyHint: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)),
		StripCell: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Background)),
	}
}

// PatternColor returns the strip color for the i-th pattern.
func (t Theme) PatternColor(i int) string {
	if len(t.Patterns) == 0 {
		return t.Accent
	}
	if i < 0 {
		i = -i
	}
	return t.Patterns[i%len(t.Patterns)]
}

var themes = map[string]Theme{
	"Ember":   emberTheme(),
	"Glacier": glacierTheme(),
	"Mono":    monoTheme(),
}

var themeOrder = []string{"Ember", "Glacier", "Mono"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return emberTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func emberTheme() Theme {
	return Theme{
		Name:       "Ember",
		Background: "#1c1917",
		Surface:    "#292524",
		Selection:  "#44403c",
		Text:       "#e7e5e4",
		Muted:      "#a8a29e",
		Faint:      "#57534e",
		Accent:     "#f97316",
		Warning:    "#facc15",
		Danger:     "#ef4444",
		Patterns:   []string{"#f97316", "#facc15", "#ef4444", "#fb7185", "#fdba74"},
	}
}

func glacierTheme() Theme {
	// Nord palette: https://www.nordtheme.com
	return Theme{
		Name:       "Glacier",
		Background: "#2e3440",
		Surface:    "#3b4252",
		Selection:  "#434c5e",
		Text:       "#eceff4",
		Muted:      "#a3acbd",
		Faint:      "#616e88",
		Accent:     "#88c0d0",
		Warning:    "#ebcb8b",
		Danger:     "#bf616a",
		Patterns:   []string{"#88c0d0", "#a3be8c", "#b48ead", "#ebcb8b", "#81a1c1"},
	}
}

func monoTheme() Theme {
	return Theme{
		Name:       "Mono",
		Background: "#000000",
		Surface:    "#1a1a1a",
		Selection:  "#333333",
		Text:       "#e0e0e0",
		Muted:      "#9e9e9e",
		Faint:      "#5c5c5c",
		Accent:     "#ffffff",
		Warning:    "#bdbdbd",
		Danger:     "#ffffff",
		Patterns:   []string{"#ffffff", "#bdbdbd", "#8a8a8a"},
	}
}
