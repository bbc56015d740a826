// Package tui is the terminal chat interface of the assistant.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mike-a-ellis/hse-assistant/internal/monitor"
	"github.com/mike-a-ellis/hse-assistant/internal/present"
	"github.com/mike-a-ellis/hse-assistant/internal/rag"
)

const greeting = `Hello! I am your HSE assistant for the mining industry.

I can help with protective equipment, site safety procedures, risk
management, emergency protocols and HSE regulations. Ask me a question.`

// Asker is the TUI-facing subset of rag.System.
type Asker interface {
	Query(ctx context.Context, question string) rag.Result
}

type role int

const (
	roleAssistant role = iota
	roleUser
	roleError
	roleNotice
)

type message struct {
	role role
	text string
}

// answerMsg carries a finished query back into Update.
type answerMsg struct {
	question string
	result   rag.Result
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx      context.Context
	asker    Asker
	monitor  *monitor.Monitor
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	messages []message
	status   string
	busy     bool
	ready    bool
}

// New creates a chat model. mon may be nil.
func New(ctx context.Context, asker Asker, mon *monitor.Monitor) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about mine safety"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		asker:    asker,
		monitor:  mon,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		messages: []message{{role: roleAssistant, text: greeting}},
		status:   "Enter to send, Ctrl+L to clear, Ctrl+C to quit.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + banner, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.status = "Ready."
		m.appendResult(msg)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.messages = nil
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := m.input.Value()
	if err := present.ValidateQuestion(q); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.input.SetValue("")
	m.messages = append(m.messages, message{role: roleUser, text: strings.TrimSpace(q)})
	m.busy = true
	m.status = "Searching the knowledge base..."
	m.refresh()
	return m, tea.Batch(m.ask(q), m.spinner.Tick)
}

func (m Model) ask(q string) tea.Cmd {
	ctx, asker := m.ctx, m.asker
	return func() tea.Msg {
		return answerMsg{question: q, result: asker.Query(ctx, q)}
	}
}

func (m *Model) appendResult(msg answerMsg) {
	switch res := msg.result.(type) {
	case rag.Answer:
		m.monitor.LogInteraction(m.ctx, msg.question, res.Answer, res.Sources)
		text := res.Answer
		if sources := present.UniqueSources(res.Sources); len(sources) > 0 {
			text += "\n\nSources:\n" + strings.TrimRight(present.FormatSources(sources), "\n")
		}
		m.messages = append(m.messages, message{role: roleAssistant, text: text})
		if notice := present.SafetyNotice(msg.question); notice != "" {
			m.messages = append(m.messages, message{role: roleNotice, text: notice})
		}
	case rag.Failure:
		m.messages = append(m.messages, message{role: roleError, text: "An error occurred: " + res.Message})
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("HSE Mining Assistant")
	banner := bannerStyle.Render(emergencyBanner())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + banner + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.messages) == 0 {
		return "History cleared."
	}
	width := max(10, m.viewport.Width-4)
	parts := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		var label string
		style := lipgloss.NewStyle().Width(width)
		switch msg.role {
		case roleUser:
			label = userStyle.Render("You")
		case roleError:
			label = errorStyle.Render("Error")
		case roleNotice:
			label = noticeStyle.Render("Safety")
		default:
			label = assistantStyle.Render("Assistant")
		}
		parts = append(parts, label+"\n"+style.Render(msg.text))
	}
	return strings.Join(parts, "\n\n")
}

func emergencyBanner() string {
	nums := make([]string, 0, len(present.EmergencyNumbers))
	for _, n := range present.EmergencyNumbers {
		nums = append(nums, fmt.Sprintf("%s %s", n.Service, n.Number))
	}
	return "Emergency: " + strings.Join(nums, " | ")
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	bannerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// Run starts the chat in the alternate screen and blocks until the user quits.
func Run(ctx context.Context, asker Asker, mon *monitor.Monitor) error {
	_, err := tea.NewProgram(New(ctx, asker, mon), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
