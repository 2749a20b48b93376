package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"scriptmenu/internal/model"
	"scriptmenu/internal/session"
)

// maxBanners is how many notifications stay on screen.
const maxBanners = 5

// Banner is one notification shown above the menu.
type Banner struct {
	Title   string
	Message string
	At      time.Time
}

// AppModel holds the TUI state.
type AppModel struct {
	Session *session.Session

	// Data
	Menu     session.Menu
	Dir      string
	TopIcon  model.IconRef
	Degraded bool
	LogPath  string
	Err      error

	// UI State
	SelectedIdx int
	Visible     []int // indices into Menu.Items matching the search
	Running     int
	WindowSize  tea.WindowSizeMsg
	ShowHelp    bool

	// Notifications, most recent first
	Banners []Banner

	// Components
	Search       textinput.Model
	OutputView   viewport.Model
	LastOutput   string
	LastScript   string
	LastStatusOK bool
}

// InitialModel returns the state for a started session.
func InitialModel(s *session.Session) AppModel {
	ti := textinput.New()
	ti.Placeholder = "Search scripts..."
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 30
	ti.Focus()

	m := AppModel{
		Session:    s,
		Search:     ti,
		OutputView: viewport.New(40, 10),
		LogPath:    s.LogPath(),
	}
	m.reload()
	return m
}

// reload pulls the latest snapshot and settings derived state from the
// session and re-applies the search.
func (m *AppModel) reload() {
	m.Menu = m.Session.Menu()
	m.Dir = m.Session.Snapshot().Directory
	m.TopIcon = m.Session.TopIcon()
	m.Degraded = m.Session.WatchDegraded()
	m.applySearch()
}

func (m *AppModel) applySearch() {
	visible := m.Menu.Visible(m.Search.Value())
	m.Visible = make([]int, 0, len(visible))
	for i, ok := range visible {
		if ok {
			m.Visible = append(m.Visible, i)
		}
	}
	if m.SelectedIdx >= len(m.Visible) {
		m.SelectedIdx = max(len(m.Visible)-1, 0)
	}
}

// Selected returns the highlighted menu item.
func (m AppModel) Selected() (session.MenuItem, bool) {
	if m.SelectedIdx < 0 || m.SelectedIdx >= len(m.Visible) {
		return session.MenuItem{}, false
	}
	return m.Menu.Items[m.Visible[m.SelectedIdx]], true
}

func (m *AppModel) pushBanner(b Banner) {
	m.Banners = append([]Banner{b}, m.Banners...)
	if len(m.Banners) > maxBanners {
		m.Banners = m.Banners[:maxBanners]
	}
}
