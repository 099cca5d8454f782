package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/newhook/triage/internal/logtext"
	"github.com/newhook/triage/internal/report"
	"github.com/newhook/triage/internal/rules"
)

var viewCmd = &cobra.Command{
	Use:   "view [file]",
	Short: "Browse a log's report in an interactive viewer",
	Long: `Open an interactive viewer showing the problems found in a log.
Press r to re-read the file and check it again, q to quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

var (
	viewTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	viewStatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("247"))

	viewErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

type viewKeyMap struct {
	Quit   key.Binding
	Reload key.Binding
}

var viewKeys = viewKeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
}

// reportLoadedMsg carries a freshly evaluated report.
type reportLoadedMsg struct {
	report report.Report
}

// loadErrorMsg reports a failure to read the log.
type loadErrorMsg struct {
	err error
}

// viewModel is the bubbletea model for `triage view`.
type viewModel struct {
	source   string
	load     func() (string, error)
	eng      *rules.Engine
	opts     checkOptions
	viewport viewport.Model
	ready    bool
	width    int
	report   *report.Report
	err      error
}

func newViewModel(source string, load func() (string, error), eng *rules.Engine, opts checkOptions) *viewModel {
	return &viewModel{
		source: source,
		load:   load,
		eng:    eng,
		opts:   opts,
	}
}

// Init implements tea.Model
func (m *viewModel) Init() tea.Cmd {
	return m.reload()
}

func (m *viewModel) reload() tea.Cmd {
	return func() tea.Msg {
		text, err := m.load()
		if err != nil {
			return loadErrorMsg{err: err}
		}
		return reportLoadedMsg{report: evaluate(m.eng, m.source, text, m.opts)}
	}
}

// Update implements tea.Model
func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		// Title and status line.
		height := max(msg.Height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, viewKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, viewKeys.Reload):
			return m, m.reload()
		}

	case reportLoadedMsg:
		m.report = &msg.report
		m.err = nil
		m.refreshContent()
		return m, nil

	case loadErrorMsg:
		m.err = msg.err
		return m, nil
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *viewModel) refreshContent() {
	if !m.ready || m.report == nil {
		return
	}
	// The source is already shown in the title bar.
	r := *m.report
	r.Source = ""
	m.viewport.SetContent(report.RenderText([]report.Report{r}, report.TextOptions{
		Width: max(m.width-2, 20),
		Color: true,
	}))
	m.viewport.GotoTop()
}

// View implements tea.Model
func (m *viewModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	title := sourceTitle(m.source)
	if m.report != nil {
		title = fmt.Sprintf("%s (%d problem(s))", title, len(m.report.Matches))
	}
	b.WriteString(viewTitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(viewErrorStyle.Render("Error: " + m.err.Error()))
	} else {
		b.WriteString(viewStatusStyle.Render(fmt.Sprintf("%s • %s • %3.f%%",
			viewKeys.Reload.Help().Key+" "+viewKeys.Reload.Help().Desc,
			viewKeys.Quit.Help().Key+" "+viewKeys.Quit.Help().Desc,
			m.viewport.ScrollPercent()*100)))
	}
	return b.String()
}

func sourceTitle(source string) string {
	if source == logtext.StdinName {
		return "stdin"
	}
	return source
}

func runView(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	source := logtext.StdinName
	if len(args) == 1 {
		source = args[0]
	}

	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(os.Stderr)}

	var load func() (string, error)
	if source == logtext.StdinName {
		// Standard input can only be read once; reloading re-checks the same text.
		text, err := logtext.Read(cmd.InOrStdin())
		if err != nil {
			return err
		}
		load = func() (string, error) { return text, nil }
		// Keys come from the terminal once the piped log is consumed.
		programOpts = append(programOpts, tea.WithInputTTY())
	} else {
		load = func() (string, error) { return logtext.ReadSource(source, nil) }
	}

	model := newViewModel(source, load, eng, checkOptions{Normalize: appConfig.Input.ShouldNormalize()})
	p := tea.NewProgram(model, programOpts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running viewer: %w", err)
	}
	return nil
}
