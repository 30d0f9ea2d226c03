package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"staychat/internal/domain"
	"staychat/internal/session"
)

// ChatPort is the TUI-facing subset of the chat service.
type ChatPort interface {
	Properties() []domain.Property
	Select(propertyID string) (session.Snapshot, error)
	Reset() (session.Snapshot, error)
	Ask(ctx context.Context, sessionID, question string) (string, error)
	Snapshot() (session.Snapshot, error)
}

type mode int

const (
	modePick mode = iota
	modeChat
)

// turnResultMsg carries a finished turn back into the update loop. The
// session ID lets stale results from a replaced session be dropped.
type turnResultMsg struct {
	sessionID string
	answer    string
	err       error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service     ChatPort
	mode        mode
	picker      list.Model
	input       textinput.Model
	viewport    viewport.Model
	spin        spinner.Model
	snap        session.Snapshot
	waiting     bool
	status      string
	ready       bool
	width       int
	height      int
	turnTimeout time.Duration
}

type propertyItem struct{ p domain.Property }

func (i propertyItem) Title() string       { return i.p.Name }
func (i propertyItem) FilterValue() string { return i.p.Name }
func (i propertyItem) Description() string {
	if i.p.HasRecords() {
		return fmt.Sprintf("%d knowledge passages", len(i.p.Records))
	}
	return "property guide"
}

// New creates a new TUI model instance.
func New(service ChatPort) Model {
	items := make([]list.Item, 0)
	for _, p := range service.Properties() {
		items = append(items, propertyItem{p})
	}
	picker := list.New(items, list.NewDefaultDelegate(), 0, 0)
	picker.Title = "Choose the property"
	picker.SetShowStatusBar(false)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the property and press Enter"
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(0, 0)
	return Model{
		service:     service,
		mode:        modePick,
		picker:      picker,
		input:       ti,
		viewport:    vp,
		spin:        sp,
		status:      "Select a property to start chatting.",
		turnTimeout: 90 * time.Second,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, and turn-result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.picker.SetSize(msg.Width, msg.Height-2)
		m.resizeChat()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.mode == modePick {
			return m.updatePick(msg)
		}
		return m.updateChat(msg)

	case turnResultMsg:
		// A reply for a session that is no longer on screen is stale.
		if msg.sessionID != m.snap.ID {
			return m, nil
		}
		m.waiting = false
		if msg.err != nil {
			m.status = "Turn failed. Try again."
		} else {
			m.status = statusHint
		}
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.mode == modePick {
		m.picker, cmd = m.picker.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

const statusHint = "Enter: send  •  Ctrl+R: clear history  •  Esc: switch property"

func (m Model) updatePick(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		item, ok := m.picker.SelectedItem().(propertyItem)
		if ok {
			snap, err := m.service.Select(item.p.ID)
			if err != nil {
				m.status = "Error: " + err.Error()
				return m, nil
			}
			m.snap = snap
			m.mode = modeChat
			m.waiting = false
			m.status = statusHint
			m.input.SetValue("")
			m.input.Focus()
			m.resizeChat()
			m.refreshTranscript()
			return m, textinput.Blink
		}
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modePick
		m.status = "Select a property to start chatting."
		return m, nil
	case "ctrl+r":
		snap, err := m.service.Reset()
		if err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		m.snap = snap
		m.waiting = false
		m.status = statusHint
		m.refreshTranscript()
		return m, nil
	case "enter":
		q := strings.TrimSpace(m.input.Value())
		if q == "" || m.waiting {
			return m, nil
		}
		m.input.SetValue("")
		m.waiting = true
		m.status = "Thinking..."
		// Show the user's message immediately; the store records it
		// when the turn starts.
		m.snap.Messages = append(m.snap.Messages, domain.Message{Role: domain.RoleUser, Content: q})
		m.refreshTranscript()
		return m, tea.Batch(m.spin.Tick, m.submitTurn(m.snap.ID, q))
	case "up":
		m.viewport.LineUp(1)
		return m, nil
	case "down":
		m.viewport.LineDown(1)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitTurn runs one pipeline turn off the update loop.
func (m Model) submitTurn(sessionID, question string) tea.Cmd {
	svc := m.service
	timeout := m.turnTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		answer, err := svc.Ask(ctx, sessionID, question)
		return turnResultMsg{sessionID: sessionID, answer: answer, err: err}
	}
}

// View renders the picker or the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.mode == modePick {
		return m.picker.View()
	}
	header := headerStyle.Render(m.propertyName())
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.waiting {
		status = m.spin.View() + " " + status
	}
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) propertyName() string {
	for _, p := range m.service.Properties() {
		if p.ID == m.snap.PropertyID {
			return p.Name
		}
	}
	return m.snap.PropertyID
}

func (m *Model) resizeChat() {
	if m.width == 0 {
		return
	}
	_, th := transcriptBoxStyle.GetFrameSize()
	_, ih := inputBoxStyle.GetFrameSize()
	reserved := 2 + ih + 1 // header, input frame, status
	vh := m.height - reserved - th
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = maxInt(20, m.width-2)
	m.viewport.Height = vh
	m.refreshTranscript()
}

// refreshTranscript pulls the latest messages and re-renders the log.
func (m *Model) refreshTranscript() {
	// Adopt the store's view only when it is at least as current as the
	// local one; a just-submitted user message is shown optimistically
	// before the store records it.
	if snap, err := m.service.Snapshot(); err == nil && snap.ID == m.snap.ID && len(snap.Messages) >= len(m.snap.Messages) {
		m.snap = snap
	}
	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You: ") + msg.Content)
		default:
			b.WriteString(assistantStyle.Render("Host: ") + msg.Content)
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
