// Package preview implements an interactive terminal editor that expands a
// template line as it is typed.
package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/atsub/log"
	"github.com/ardnew/atsub/subst"
)

const prompt = "@ "

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
)

// formatCommand formats the echo line of a submitted template.
func formatCommand(input string) string {
	return promptStyle.Render(prompt) + inputStyle.Render(input)
}

// model is the Bubble Tea model of the preview.
type model struct {
	ctx        context.Context
	input      textinput.Model
	registry   *subst.Registry
	tuple      subst.Context
	logger     log.Logger
	history    *History
	historyIdx int
	names      []string

	matches    fuzzy.Matches // current fuzzy match results
	nameStart  int           // byte offset of the name being completed
	nameEnd    int           // byte offset past the name being completed
	nameClosed bool          // whether the reference has its closing brace
	suggIdx    int           // selected candidate index
	tabActive  bool          // whether user is tab-cycling
	preTabText string        // input text before tab-cycling began
	preTabPos  int           // cursor position before tab-cycling began

	output   string
	diags    []subst.Diagnostic
	err      error
	width    int
	quitting bool
}

// Run starts the preview, expanding every edit of initial against tuple with
// the variables of reg. History is kept in cacheDir.
func Run(
	ctx context.Context,
	reg *subst.Registry,
	tuple subst.Context,
	initial string,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if reg == nil {
		return ErrNoRegistry
	}

	history := NewHistory(filepath.Join(cacheDir, baseHistory))
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history",
			slog.String("path", history.path),
			slog.Any("error", err),
		)
	}

	logger.TraceContext(ctx, "preview start",
		slog.Int("names", reg.Len()),
		slog.Int("history", history.Len()),
	)

	m := newModel(ctx, reg, tuple, history, logger)
	m = m.setValue(initial)

	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	reg *subst.Registry,
	tuple subst.Context,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Placeholder = "text with @x or @{name} references"
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	m := model{
		ctx:        ctx,
		input:      ti,
		registry:   reg,
		tuple:      tuple,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		names:      slices.Collect(reg.Names()),
		suggIdx:    -1,
		width:      defaultWidth,
	}
	m.expand()

	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(prompt) - 2

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	default:
		b.WriteString(resultStyle.Render(strconv.Quote(m.output)))
	}

	b.WriteString("\n")

	for _, d := range m.diags {
		b.WriteString(warnStyle.Render(d.Error()))
		b.WriteString("\n")
	}

	switch {
	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width))

	case m.input.Value() == "":
		b.WriteString(hintStyle.Render(
			"Type @{ to complete a name, Enter to keep a line, Ctrl+D to exit",
		))
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctx, "preview keypress",
		slog.String("key", msg.String()),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.tabActive = false
		m.historyIdx = m.history.Len()

		return m.setValue(""), nil

	case tea.KeyCtrlD:
		m.quitting = true

		return m, tea.Quit

	case tea.KeyEnter:
		if m.tabActive && len(m.matches) > 0 {
			m.tabActive = false
			refreshMatches(&m)

			return m, nil
		}

		return m.submit()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.historyMove(-1), nil

	case tea.KeyDown:
		return m.historyMove(1), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabPos)
			refreshMatches(&m)
			m.expand()
		}

		return m, nil
	}

	var cmd tea.Cmd

	m.tabActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m)
	m.expand()

	return m, cmd
}

// cycle moves the selected completion candidate by step, completing the name
// directly when there is a single candidate.
func (m model) cycle(step int) model {
	if len(m.matches) == 0 {
		return m
	}

	if len(m.matches) == 1 {
		replaceName(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
		m.expand()

		return m
	}

	if m.tabActive {
		m.suggIdx = (m.suggIdx + step + len(m.matches)) % len(m.matches)
	} else {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabPos = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = len(m.matches) - 1
		}
	}

	replaceName(&m, m.matches[m.suggIdx].Str)
	m.expand()

	return m
}

// historyMove replaces the input with the history entry step entries away
// from the current one. Moving past the newest entry clears the input.
func (m model) historyMove(step int) model {
	idx := m.historyIdx + step
	if idx < 0 {
		return m
	}

	if idx >= m.history.Len() {
		m.historyIdx = m.history.Len()

		return m.setValue("")
	}

	entry, err := m.history.Entry(idx)
	if err != nil {
		return m
	}

	m.historyIdx = idx

	return m.setValue(entry)
}

// submit keeps the current line in the history and prints it with its
// expansion above the editor.
func (m model) submit() (model, tea.Cmd) {
	input := m.input.Value()
	if strings.TrimSpace(input) == "" {
		return m, nil
	}

	if err := m.history.Add(input); err != nil {
		m.logger.WarnContext(m.ctx, "could not save history", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	result := resultStyle.Render(m.output)
	if m.err != nil {
		result = errorStyle.Render("error: " + m.err.Error())
	}

	m.logger.TraceContext(m.ctx, "preview submit",
		slog.String("input", input),
		slog.Int("diagnostics", len(m.diags)),
	)

	return m.setValue(""), tea.Sequence(
		tea.Println(formatCommand(input)),
		tea.Println(result),
	)
}

// setValue replaces the input text, moving the cursor to its end.
func (m model) setValue(text string) model {
	m.input.SetValue(text)
	m.input.CursorEnd()
	refreshMatches(&m)
	m.expand()

	return m
}

// expand parses and expands the current input, recording the output,
// diagnostics, and any error.
func (m *model) expand() {
	m.output, m.diags, m.err = "", nil, nil

	tmpl, err := m.registry.ParseWith(m.ctx, m.input.Value(), log.Make(io.Discard))
	if err != nil {
		m.err = err

		return
	}

	m.diags = tmpl.Diagnostics()

	var out strings.Builder
	if err := tmpl.ExpandSink(subst.NewSink(&out), m.tuple); err != nil {
		m.err = err

		return
	}

	m.output = out.String()
}
