package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/lunchtray/internal/engine"
)

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the engine. It reads state through the
// snapshot function and triggers work through the refresh command.
type App struct {
	snapshot func(code string) (engine.State, bool)
	refresh  func() tea.Cmd

	codes []string // display cycle order
	index int

	language      string
	showPrices    bool
	showAllergens bool

	spinner spinner.Model
	width   int
	height  int
	ready   bool
}

// NewApp creates a new App.
// snapshot: reads one restaurant's current state
// refresh: returns a Cmd that triggers a manual fetch pass
// codes: restaurant cycle order; selected is the initial restaurant
func NewApp(snapshot func(string) (engine.State, bool), refresh func() tea.Cmd, codes []string, selected, language string, showPrices, showAllergens bool) App {
	index := 0
	for i, code := range codes {
		if code == selected {
			index = i
			break
		}
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = HelpStyle

	return App{
		snapshot:      snapshot,
		refresh:       refresh,
		codes:         codes,
		index:         index,
		language:      language,
		showPrices:    showPrices,
		showAllergens: showAllergens,
		spinner:       sp,
	}
}

// Init starts the spinner; the coordinator fetches on its own schedule.
func (a App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case FetchComplete:
		// State already lives in the engine; the message only forces a
		// re-render.
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "right", "l", "tab":
		if len(a.codes) > 0 {
			a.index = (a.index + 1) % len(a.codes)
		}
		return a, nil

	case "left", "h", "shift+tab":
		if len(a.codes) > 0 {
			a.index = (a.index - 1 + len(a.codes)) % len(a.codes)
		}
		return a, nil

	case "r":
		if a.refresh != nil {
			return a, a.refresh()
		}
		return a, nil
	}

	return a, nil
}

// ActiveCode returns the code of the currently displayed restaurant.
func (a App) ActiveCode() string {
	if len(a.codes) == 0 {
		return ""
	}
	return a.codes[a.index]
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder

	state, ok := a.snapshot(a.ActiveCode())
	if !ok {
		b.WriteString(ErrorStyle.Render("no restaurant selected"))
		b.WriteString("\n")
		b.WriteString(a.statusBar())
		return b.String()
	}

	header := state.RestaurantName
	if header == "" {
		header = state.Code
	}
	if len(a.codes) > 1 {
		header = fmt.Sprintf("%s (%d/%d)", header, a.index+1, len(a.codes))
	}
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n")

	b.WriteString(a.renderState(state))
	b.WriteString("\n")
	b.WriteString(a.statusBar())
	return b.String()
}

// renderState renders the body for one restaurant state.
func (a App) renderState(state engine.State) string {
	var b strings.Builder

	switch state.Status {
	case engine.StatusIdle, engine.StatusLoading:
		b.WriteString(a.spinner.View())
		b.WriteString(HelpStyle.Render(TextFor(a.language, "loading")))
		return b.String()

	case engine.StatusError:
		b.WriteString(ErrorStyle.Render(TextFor(a.language, "fetchError")))
		if state.ErrorMessage != "" {
			b.WriteString("\n")
			b.WriteString(HelpStyle.Render(state.ErrorMessage))
		}
		return b.String()

	case engine.StatusStale:
		b.WriteString(StaleBadge.Render("! "))
		b.WriteString(DateLineStyle.Render(TextFor(a.language, "stale")))
		b.WriteString("\n")
	case engine.StatusOk:
		b.WriteString(FreshBadge.Render("✓"))
		b.WriteString("\n")
	}

	m := state.TodayMenu
	if m == nil {
		b.WriteString(HelpStyle.Render(TextFor(a.language, "noMenu")))
		return b.String()
	}

	if line := DateTimeLine(m, a.language); line != "" {
		b.WriteString(DateLineStyle.Render(line))
		b.WriteString("\n")
	}

	if len(m.Menus) == 0 {
		b.WriteString(HelpStyle.Render(TextFor(a.language, "noMenu")))
		return b.String()
	}

	for _, section := range m.Menus {
		b.WriteString(SectionTitle.Render(MenuHeading(section, a.showPrices)))
		b.WriteString("\n")
		for _, component := range section.Components {
			main, suffix := ComponentLine(component, a.showAllergens)
			line := ComponentStyle.Render(main)
			if suffix != "" {
				line += " " + AllergenStyle.Render(suffix)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// statusBar renders the bottom key-hint bar.
func (a App) statusBar() string {
	keys := []string{
		StatusBarKey.Render("←/→") + StatusBarText.Render(":restaurant"),
		StatusBarKey.Render("r") + StatusBarText.Render(":refresh"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	bar := strings.Join(keys, " ")
	if a.width > 0 {
		return StatusBar.Width(a.width).Render(bar)
	}
	return StatusBar.Render(bar)
}
