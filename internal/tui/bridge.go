package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"scriptmenu/internal/model"
	"scriptmenu/internal/session"
)

// Bridge forwards session callbacks into a running program as messages.
// Sends happen on their own goroutine so the session loop never waits on
// the UI.
type Bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

// Attach sets the program messages go to. Messages before Attach are dropped.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p == nil {
		return
	}
	go p.Send(msg)
}

// Notify is a sink.NotifyFunc showing a banner.
func (b *Bridge) Notify(title, message string) error {
	b.send(MsgNotification{Title: title, Message: message})
	return nil
}

// Options wires the session callbacks to the bridge.
func (b *Bridge) Options() []session.Option {
	return []session.Option{
		session.WithNotifier(model.AppName, b.Notify),
		session.OnRefresh(func(model.CatalogSnapshot) { b.send(MsgCatalogChanged{}) }),
		session.OnTopIcon(func(model.IconRef) { b.send(MsgTopIconChanged{}) }),
		session.OnCompletion(func(c model.Completion) { b.send(MsgCompletion(c)) }),
	}
}
