package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kastheco/monothematic/app"
)

// RunStartedMsg tells the live view a run began.
type RunStartedMsg struct {
	Reason string
}

// RunFinishedMsg carries a run's result to the live view.
type RunFinishedMsg struct {
	Outcome *app.Outcome
	Err     error
}

var (
	liveMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e6a86"))
	liveError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#eb6f92"))
	liveSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ccfd8"))
	liveHeading = lipgloss.NewStyle().Bold(true)
)

// LiveModel is the bubbletea model behind `watch --tui`: a spinner while a
// run is in flight, then the latest wallpaper, seed, per-template counts and
// the palette preview.
type LiveModel struct {
	spinner spinner.Model
	cancel  func()

	running bool
	reason  string
	runs    int

	last    *app.Outcome
	lastErr error
}

// NewLiveModel returns the live view. cancel is called when the user quits.
func NewLiveModel(cancel func()) LiveModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = liveSuccess
	return LiveModel{spinner: s, cancel: cancel}
}

func (m LiveModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case RunStartedMsg:
		m.running = true
		m.reason = msg.Reason
		return m, nil

	case RunFinishedMsg:
		m.running = false
		m.runs++
		// A superseded run is followed by the run that replaced it.
		if errors.Is(msg.Err, app.ErrSuperseded) {
			return m, nil
		}
		m.lastErr = msg.Err
		if msg.Err == nil {
			m.last = msg.Outcome
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m LiveModel) View() string {
	var b strings.Builder

	if m.running {
		fmt.Fprintf(&b, "%s running %s\n", m.spinner.View(), liveMuted.Render("("+m.reason+")"))
	} else {
		fmt.Fprintf(&b, "%s watching %s\n", liveSuccess.Render("●"), liveMuted.Render(fmt.Sprintf("(%d runs)", m.runs)))
	}
	if m.lastErr != nil {
		fmt.Fprintf(&b, "%s\n", liveError.Render("last run failed: "+m.lastErr.Error()))
	}

	if o := m.last; o != nil {
		fmt.Fprintf(&b, "\n%s %s\n", liveHeading.Render("wallpaper"), o.Wallpaper)
		fmt.Fprintf(&b, "%s %s %s\n", liveHeading.Render("seed     "), o.Seed.CSS(), liveMuted.Render(o.Seed.Hex()))
		for _, t := range o.Templates {
			if t.Skipped {
				fmt.Fprintf(&b, "  %-10s %s\n", t.Name, liveMuted.Render("skipped, no template"))
				continue
			}
			fmt.Fprintf(&b, "  %-10s %d colors → %s\n", t.Name, t.Replacements, t.Destination)
		}
		b.WriteString("\n")
		b.WriteString(RenderPalette(o.Palette))
		b.WriteString("\n")
	}

	b.WriteString(liveMuted.Render("q to quit"))
	return b.String()
}
