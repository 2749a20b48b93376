package session

import (
	"scriptmenu/internal/catalog"
	"scriptmenu/internal/model"
	"scriptmenu/internal/runner"
)

// MenuItem is one launchable entry as the host renders it.
type MenuItem struct {
	DisplayName string
	FileName    string
	Icon        model.IconRef
	Activate    func() (*runner.Future, error)
}

// Menu is the host's view of a snapshot, in snapshot order.
type Menu struct {
	Items []MenuItem
}

// Visible reports per item whether it matches query.
func (m Menu) Visible(query string) []bool {
	out := make([]bool, len(m.Items))
	for i, it := range m.Items {
		out[i] = catalog.Matches(model.ScriptDescriptor{DisplayName: it.DisplayName}, query)
	}
	return out
}

// Menu builds the menu of the latest snapshot.
func (s *Session) Menu() Menu {
	snap := s.Snapshot()
	m := Menu{Items: make([]MenuItem, 0, snap.Len())}
	for _, d := range snap.Scripts {
		m.Items = append(m.Items, MenuItem{
			DisplayName: d.DisplayName,
			FileName:    d.FileName,
			Icon:        d.Icon,
			Activate:    func() (*runner.Future, error) { return s.LaunchScript(d) },
		})
	}
	return m
}
