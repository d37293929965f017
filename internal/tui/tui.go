// Package tui is the interactive paste panel: paste diff lines, preview the
// result against the target file, then apply it.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	glam "github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asynkron/justpaste/internal/logging"
	"github.com/asynkron/justpaste/internal/metrics"
	"github.com/asynkron/justpaste/internal/preview"
	"github.com/asynkron/justpaste/pkg/linepatch"
)

// Options configure the panel.
type Options struct {
	// Path is the file the pasted diff is applied to.
	Path       string
	WorkingDir string
	// Style is the glamour style used for the preview ("dark", "light", "notty").
	Style   string
	Logger  logging.Logger
	Metrics metrics.Recorder
	// ReadClipboard defaults to clipboard.ReadAll.
	ReadClipboard func() (string, error)
}

type clipboardMsg struct {
	text string
	err  error
}

type model struct {
	ctx  context.Context
	opts Options

	ta     textarea.Model
	vp     viewport.Model
	glam   *glam.TermRenderer
	width  int
	height int
	ready  bool

	previewOpen bool
	status      string
	statusErr   bool

	border      lipgloss.Style
	title       lipgloss.Style
	statusStyle lipgloss.Style
	errorStyle  lipgloss.Style
}

func newModel(ctx context.Context, opts Options) *model {
	if opts.Logger == nil {
		opts.Logger = logging.Nop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.ReadClipboard == nil {
		opts.ReadClipboard = clipboard.ReadAll
	}
	if opts.Style == "" {
		opts.Style = "dark"
	}

	ta := textarea.New()
	ta.Placeholder = "Paste diff lines here (-old / +new)…"
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetHeight(8)
	ta.Focus()

	// Only paging keys scroll the preview; everything else belongs to the textarea.
	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	m := &model{
		ctx:         ctx,
		opts:        opts,
		ta:          ta,
		vp:          vp,
		border:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("129")),
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		statusStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		errorStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		status:      "ctrl+p preview · ctrl+s apply · ctrl+x close preview · ctrl+y paste · esc quit",
	}
	_ = m.rebuildRenderer(80)
	return m
}

// rebuildRenderer recreates the glamour renderer with the given wrap width.
func (m *model) rebuildRenderer(wrap int) error {
	if wrap < 10 {
		wrap = 10
	}
	r, err := glam.NewTermRenderer(
		glam.WithStylePath(m.opts.Style),
		glam.WithWordWrap(wrap),
	)
	if err != nil {
		return err
	}
	m.glam = r
	return nil
}

// recalcLayout splits the screen between preview and input.
func (m *model) recalcLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	inner := max(m.width-2, 1)
	m.ta.SetWidth(inner)

	// title + status lines, two borders around the input.
	taH := max(min(8, m.height/3), 3)
	m.ta.SetHeight(taH)
	m.vp.Width = inner
	m.vp.Height = max(m.height-taH-6, 3)
	_ = m.rebuildRenderer(inner)
}

func (m *model) setStatus(text string, isErr bool) {
	m.status = strings.TrimSpace(text)
	m.statusErr = isErr
}

func (m *model) fileOptions(dryRun bool) linepatch.FileOptions {
	return linepatch.FileOptions{WorkingDir: m.opts.WorkingDir, DryRun: dryRun}
}

// showPreview patches the current file contents in memory and renders the
// comparison into the viewport.
func (m *model) showPreview() {
	diff := m.ta.Value()
	result, err := linepatch.ApplyFile(m.ctx, m.opts.Path, diff, m.fileOptions(true))
	if err != nil {
		m.opts.Logger.Error(m.ctx, "preview failed", err, logging.F("path", m.opts.Path))
		m.setStatus(err.Error(), true)
		return
	}

	comparison := preview.Compare(result.Original, result.Report.Text)
	content := "No changes.\n"
	if comparison.Changed() {
		content = preview.Markdown(comparison)
		if m.glam != nil {
			if rendered, err := m.glam.Render(content); err == nil {
				content = rendered
			}
		}
	}
	m.vp.SetContent(content)
	m.vp.GotoTop()
	m.previewOpen = true
	m.setStatus(linepatch.FormatReport(result.Report), false)
}

// applyToFile writes the patched text and clears the input.
func (m *model) applyToFile() {
	diff := m.ta.Value()
	start := time.Now()
	result, err := linepatch.ApplyFile(m.ctx, m.opts.Path, diff, m.fileOptions(false))
	if err != nil {
		m.opts.Logger.Error(m.ctx, "apply failed", err, logging.F("path", m.opts.Path))
		m.setStatus(err.Error(), true)
		return
	}
	m.opts.Metrics.RecordApply(time.Since(start), result.Report)
	m.opts.Logger.Info(m.ctx, "patch applied",
		logging.F("path", result.Path),
		logging.F("written", result.Written),
		logging.F("operations", len(result.Report.Steps)),
	)

	summary := linepatch.FormatReport(result.Report)
	if !result.Written {
		summary = "No changes written. " + summary
	}
	m.setStatus(summary, false)
	m.ta.Reset()
	m.previewOpen = false
	m.vp.SetContent("")
}

func (m *model) readClipboard() tea.Cmd {
	read := m.opts.ReadClipboard
	return func() tea.Msg {
		text, err := read()
		return clipboardMsg{text: text, err: err}
	}
}

func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlP:
			m.showPreview()
			return m, nil
		case tea.KeyCtrlS:
			m.applyToFile()
			return m, nil
		case tea.KeyCtrlX:
			m.previewOpen = false
			m.vp.SetContent("")
			return m, nil
		case tea.KeyCtrlY:
			return m, m.readClipboard()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}

	case clipboardMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("clipboard: %v", msg.err), true)
			return m, nil
		}
		m.ta.InsertString(msg.text)
		return m, nil
	}

	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	if !m.ready {
		return "Initializing…"
	}
	var b strings.Builder
	b.WriteString(m.title.Render("justpaste · " + m.opts.Path))
	b.WriteString("\n")
	if m.previewOpen {
		b.WriteString(m.border.Render(m.vp.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.border.Render(m.ta.View()))
	b.WriteString("\n")
	if m.statusErr {
		b.WriteString(m.errorStyle.Render(m.status))
	} else {
		b.WriteString(m.statusStyle.Render(m.status))
	}
	return b.String()
}

// Run opens the panel for opts.Path and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	if strings.TrimSpace(opts.Path) == "" {
		return errors.New("a target file is required")
	}

	// Pin the color profile so lipgloss/termenv never query the terminal
	// background through stdin.
	lipgloss.SetColorProfile(termenv.TrueColor)
	lipgloss.SetHasDarkBackground(true)

	p := tea.NewProgram(newModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
