package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"scriptmenu/internal/model"
)

// MsgCatalogChanged means the session published a new snapshot.
type MsgCatalogChanged struct{}

// MsgTopIconChanged means the top icon settings changed.
type MsgTopIconChanged struct{}

// MsgNotification is a completion message for the banner.
type MsgNotification struct {
	Title   string
	Message string
}

// MsgCompletion carries a finished launch for the output pane.
type MsgCompletion model.Completion

// Update handles events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		m.OutputView.Width = max(msg.Width/2-4, 10)
		m.OutputView.Height = max(msg.Height-10, 3)
		return m, nil

	case MsgCatalogChanged:
		m.reload()
		return m, nil

	case MsgTopIconChanged:
		m.TopIcon = m.Session.TopIcon()
		return m, nil

	case MsgNotification:
		m.pushBanner(Banner{Title: msg.Title, Message: strings.TrimSpace(msg.Message), At: time.Now()})
		return m, nil

	case MsgCompletion:
		c := model.Completion(msg)
		if m.Running > 0 {
			m.Running--
		}
		m.LastScript = c.Script
		m.LastStatusOK = !c.Failed() && c.Result.ExitStatus == 0
		m.LastOutput = renderCompletion(c)
		m.OutputView.SetContent(m.LastOutput)
		m.OutputView.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if m.ShowHelp {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "f1", "enter":
				m.ShowHelp = false
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "f1":
			m.ShowHelp = true
			return m, nil
		case "esc":
			if m.Search.Value() != "" {
				m.Search.SetValue("")
				m.applySearch()
			}
			return m, nil
		case "up", "ctrl+p":
			if m.SelectedIdx > 0 {
				m.SelectedIdx--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.SelectedIdx < len(m.Visible)-1 {
				m.SelectedIdx++
			}
			return m, nil
		case "pgup", "pgdown":
			m.OutputView, cmd = m.OutputView.Update(msg)
			return m, cmd
		case "ctrl+r":
			m.Search.SetValue("")
			m.SelectedIdx = 0
			m.Session.Refresh()
			m.reload()
			return m, nil
		case "enter":
			m.launchSelected()
			return m, nil
		}

		m.Search, cmd = m.Search.Update(msg)
		m.applySearch()
		return m, cmd
	}

	return m, cmd
}

func (m *AppModel) launchSelected() {
	item, ok := m.Selected()
	if !ok {
		return
	}
	if _, err := item.Activate(); err != nil {
		m.Err = err
		m.pushBanner(Banner{Title: item.FileName, Message: err.Error(), At: time.Now()})
		return
	}
	m.Err = nil
	m.Running++
}

func renderCompletion(c model.Completion) string {
	var b strings.Builder
	if c.Failed() {
		fmt.Fprintf(&b, "%s %s could not be started\n\n%s\n", model.GlyphFailed, c.Script, c.Err)
		return b.String()
	}
	res := c.Result
	glyph := model.GlyphOK
	if res.ExitStatus != 0 {
		glyph = model.GlyphFailed
	}
	fmt.Fprintf(&b, "%s %s exited with %d after %s\n", glyph, c.Script, res.ExitStatus, res.Duration().Round(time.Millisecond))
	b.WriteString("\nSTDOUT:\n")
	b.WriteString(res.Stdout)
	b.WriteString("\nSTDERR:\n")
	b.WriteString(res.Stderr)
	return b.String()
}

// refreshCmd rescans on open, like opening the menu does.
func refreshCmd(m AppModel) tea.Cmd {
	return func() tea.Msg {
		m.Session.Refresh()
		return nil
	}
}

// Init focuses the search and asks for a fresh scan.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, refreshCmd(m))
}
