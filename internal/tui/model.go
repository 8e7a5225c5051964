// Package tui is the bubbletea front-end for the tutor backend.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"llm-tutor/internal/chat"
	"llm-tutor/internal/domain"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// header, rule, status line, input and hint
	chromeHeight = 6
)

type initDoneMsg struct{ err error }

type replyMsg struct {
	reply string
	err   error
}

type resetDoneMsg struct{ err error }

// Model renders a chat.Session and drives its flows against a backend.
type Model struct {
	ctx     context.Context
	session *chat.Session
	backend chat.Backend
	logger  *slog.Logger

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	style         string
	renderer      *glamour.TermRenderer
	rendererWidth int

	width    int
	height   int
	revision uint64
	dirty    bool
}

type Option func(*Model)

// WithStyle selects the glamour style used for assistant messages.
func WithStyle(style string) Option {
	return func(m *Model) {
		if style != "" {
			m.style = style
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

func New(ctx context.Context, session *chat.Session, backend chat.Backend, opts ...Option) Model {
	in := textinput.New()
	in.Placeholder = "Nachricht eingeben"
	in.Prompt = "> "
	in.CharLimit = 0
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = assistantLabelStyle

	m := Model{
		ctx:     ctx,
		session: session,
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		input:   in,
		spinner: s,
		style:   "dark",
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.initialize())
}

func (m Model) initialize() tea.Cmd {
	return func() tea.Msg {
		return initDoneMsg{err: m.backend.Initialize(m.ctx)}
	}
}

func (m Model) send(msg domain.Message) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.backend.Chat(m.ctx, msg)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) reset() tea.Cmd {
	return func() tea.Msg {
		return resetDoneMsg{err: m.backend.Reset(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "ctrl+r":
			if snap := m.session.Snapshot(); snap.Initializing || snap.Loading {
				return m, nil
			}
			m.session.ResetLocal()
			m.input.Reset()
			m.sync()
			return m, m.reset()

		case "enter":
			snap := m.session.Snapshot()
			if snap.Initializing || snap.Loading {
				return m, nil
			}
			out := domain.Message{Role: domain.RoleUser, Content: m.input.Value()}
			if !m.session.BeginSend(out) {
				return m, nil
			}
			m.input.Reset()
			m.sync()
			return m, tea.Batch(m.send(out), m.spinner.Tick)
		}

	case initDoneMsg:
		if msg.err != nil {
			m.logger.Error("initialization failed", "err", msg.err)
		}
		m.session.CompleteInitialize(msg.err)

	case replyMsg:
		if err := m.session.CompleteSend(msg.reply, msg.err); err != nil {
			m.logger.Error("chat request failed", "err", err)
		}

	case resetDoneMsg:
		if msg.err != nil {
			m.logger.Error("error resetting input state", "err", msg.err)
		}

	case spinner.TickMsg:
		snap := m.session.Snapshot()
		if snap.Loading || snap.Initializing {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if _, ok := msg.(tea.KeyMsg); ok && !m.session.Snapshot().Loading {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	m.sync()
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("LLM-Tutor"))
	b.WriteString("\n")
	b.WriteString(ruleStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	snap := m.session.Snapshot()
	if snap.Initializing {
		if snap.Error != "" {
			b.WriteString(bannerStyle.Render(errorStyle.Render("Initialisierungsfehler:") + " " + fmt.Sprintf("%q", snap.Error)))
		} else {
			b.WriteString(bannerStyle.Render(m.spinner.View() + " Initialisierung..."))
		}
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("esc beenden"))
		return b.String()
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case snap.Loading:
		b.WriteString(m.spinner.View() + " Antwort wird erstellt...")
	case snap.Error != "":
		b.WriteString(errorStyle.Render("Fehler: " + snap.Error))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter senden • ctrl+r zurücksetzen • esc beenden"))
	return b.String()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	vpHeight := height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(width, vpHeight)
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = max(width-4, 10)
	m.dirty = true
}

// sync rebuilds the viewport when the session changed since the last render.
func (m *Model) sync() {
	snap := m.session.Snapshot()
	if !m.dirty && snap.Revision == m.revision {
		return
	}
	m.revision = snap.Revision
	m.dirty = false
	m.viewport.SetContent(m.renderMessages(snap.Messages))
	m.viewport.GotoBottom()
}

func (m *Model) renderMessages(msgs []domain.Message) string {
	bubbleWidth := max(m.viewport.Width-2, 10)

	var content strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			content.WriteString("\n")
		}
		if msg.Role == domain.RoleUser {
			content.WriteString(userLabelStyle.Render("Du") + "\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Content))
		} else {
			content.WriteString(assistantLabelStyle.Render("Tutor") + "\n")
			rendered := strings.TrimRight(m.markdown(msg.Content, bubbleWidth-4), "\n")
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
		}
		content.WriteString("\n")
	}
	return content.String()
}

// markdown renders content with glamour, falling back to the raw text.
func (m *Model) markdown(content string, width int) string {
	if m.renderer == nil || m.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.logger.Warn("markdown renderer unavailable", "err", err)
			return content
		}
		m.renderer = r
		m.rendererWidth = width
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}
