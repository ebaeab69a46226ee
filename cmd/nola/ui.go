package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/nolavoice/nola-core/core"
	"github.com/nolavoice/nola-core/core/events"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	interimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4")).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type chatEntry struct {
	speaker string
	text    string
	note    string
}

// tickMsg drives the periodic status line refresh.
type tickMsg time.Time

// ui is the terminal front: a scrolling conversation viewport over a text
// input, with a status line fed from the engine's snapshot.
type ui struct {
	engine  *orchestration.Orchestrator
	voiced  bool
	entries []chatEntry

	interim string
	pending string
	lastErr string
	paused  bool

	viewport viewport.Model
	input    textarea.Model
	ready    bool
	width    int
	height   int
}

func newUI(engine *orchestration.Orchestrator, voiced bool) *ui {
	input := textarea.New()
	input.Placeholder = "Type to talk (enter to send, esc to interrupt, ctrl+c to quit)"
	input.SetHeight(2)
	input.ShowLineNumbers = false
	input.Focus()

	return &ui{
		engine: engine,
		voiced: voiced,
		input:  input,
	}
}

func (u *ui) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tick())
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (u *ui) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		u.width = msg.Width
		u.height = msg.Height
		u.layout()
		return u, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return u, tea.Quit
		case "esc":
			u.engine.Interrupt()
			return u, nil
		case "ctrl+p":
			if u.paused {
				u.engine.ResumePlayback()
			} else {
				u.engine.PausePlayback()
			}
			u.paused = !u.paused
			return u, nil
		case "ctrl+s":
			u.engine.StopSpeaking()
			return u, nil
		case "enter":
			text := strings.TrimSpace(u.input.Value())
			u.input.Reset()
			if text != "" {
				u.engine.SubmitText(text)
			}
			return u, nil
		}

	case tickMsg:
		return u, tick()

	case events.Event:
		u.observe(msg)
		u.refreshViewport()
		return u, nil
	}

	var cmd tea.Cmd
	u.input, cmd = u.input.Update(msg)
	return u, cmd
}

// observe folds one engine event into the chat transcript.
func (u *ui) observe(event events.Event) {
	switch typed := event.(type) {
	case events.UserTranscriptInterimUpdated:
		u.interim = typed.Transcript
	case events.UserUtteranceFinal:
		u.interim = ""
		u.entries = append(u.entries, chatEntry{speaker: typed.Speaker, text: typed.Transcript})
	case events.TurnStarted:
		u.pending = ""
		u.lastErr = ""
	case events.AssistantResponseSegment:
		u.pending += typed.Segment
	case events.TurnCompleted:
		u.pending = ""
		u.entries = append(u.entries, chatEntry{speaker: "assistant", text: typed.Response})
	case events.TurnInterrupted:
		u.pending = ""
		if typed.AccumulatedText != "" {
			u.entries = append(u.entries, chatEntry{
				speaker: "assistant",
				text:    typed.AccumulatedText,
				note:    "interrupted",
			})
		}
	case events.TurnFailed:
		u.pending = ""
		u.lastErr = typed.Err.Error()
	}
}

func (u *ui) layout() {
	if u.width == 0 || u.height == 0 {
		return
	}

	inputHeight := u.input.Height() + 1
	viewportHeight := max(u.height-inputHeight-2, 1)
	if !u.ready {
		u.viewport = viewport.New(u.width, viewportHeight)
		u.ready = true
	} else {
		u.viewport.Width = u.width
		u.viewport.Height = viewportHeight
	}
	u.input.SetWidth(u.width)
	u.refreshViewport()
}

func (u *ui) refreshViewport() {
	if !u.ready {
		return
	}

	atBottom := u.viewport.AtBottom()
	u.viewport.SetContent(u.renderConversation())
	if atBottom {
		u.viewport.GotoBottom()
	}
}

func (u *ui) renderConversation() string {
	width := max(u.viewport.Width-2, 20)

	lines := make([]string, 0, len(u.entries)*2+4)
	for _, entry := range u.entries {
		label := userStyle.Render(entry.speaker)
		switch entry.speaker {
		case "assistant":
			label = assistantStyle.Render(entry.speaker)
		case "system":
			label = systemStyle.Render(entry.speaker)
		}
		text := entry.text
		if entry.note != "" {
			text += " - " + entry.note
		}
		lines = append(lines, label, wordwrap.String(text, width), "")
	}

	if u.pending != "" {
		lines = append(lines,
			assistantStyle.Render("assistant"),
			pendingStyle.Render(wordwrap.String(u.pending+"▌", width)),
			"")
	}
	if u.interim != "" {
		lines = append(lines, interimStyle.Render(wordwrap.String(u.interim, width)))
	}
	if u.lastErr != "" {
		lines = append(lines, errorStyle.Render(wordwrap.String("error: "+u.lastErr, width)))
	}

	return strings.Join(lines, "\n")
}

func (u *ui) View() string {
	if !u.ready {
		return "starting..."
	}

	return strings.Join([]string{
		u.viewport.View(),
		u.statusLine(),
		u.input.View(),
	}, "\n")
}

func (u *ui) statusLine() string {
	status := u.engine.Status()

	var state string
	switch {
	case status.IsResponding && status.IsPlaying:
		state = "speaking"
	case status.IsResponding:
		state = "thinking"
	case status.IsListening:
		state = "listening"
	default:
		state = "idle"
	}
	if u.paused {
		state = "paused"
	}

	parts := []string{state, fmt.Sprintf("turns %d", status.TotalTurns)}
	if status.Interrupted > 0 {
		parts = append(parts, fmt.Sprintf("interrupted %d", status.Interrupted))
	}
	if latency := status.LastLatencies.TimeToPlayback(); latency > 0 {
		parts = append(parts, fmt.Sprintf("to-voice %dms", latency.Milliseconds()))
	}
	if !u.voiced {
		parts = append(parts, "text-only")
	}

	return statusStyle.Width(u.width).Render(strings.Join(parts, " · "))
}
