package catalog

import (
	"strings"

	"scriptmenu/internal/model"
)

// Filter returns the scripts whose display name contains query, ignoring
// case. The snapshot order is kept; an empty query matches everything.
func Filter(snap model.CatalogSnapshot, query string) []model.ScriptDescriptor {
	out := make([]model.ScriptDescriptor, 0, len(snap.Scripts))
	for _, d := range snap.Scripts {
		if Matches(d, query) {
			out = append(out, d)
		}
	}
	return out
}

// FilterNames is Filter reduced to the set of matching file names.
func FilterNames(snap model.CatalogSnapshot, query string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, d := range Filter(snap, query) {
		set[d.FileName] = struct{}{}
	}
	return set
}

// Matches reports whether d is shown for query.
func Matches(d model.ScriptDescriptor, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.DisplayName), strings.ToLower(query))
}
