package model

import "time"

// ScriptSuffix is the file name suffix of launchable scripts.
const ScriptSuffix = ".sh"

// ScriptDescriptor is the derived metadata of one script file.
type ScriptDescriptor struct {
	FileName    string  `json:"file_name"`    // e.g. deploy.sh
	DisplayName string  `json:"display_name"` // e.g. deploy (when stripping)
	Icon        IconRef `json:"icon"`
	Path        string  `json:"path"` // directory + "/" + FileName
}

// CatalogSnapshot is the ordered result of one directory scan.
type CatalogSnapshot struct {
	Directory string             `json:"directory"`
	Scripts   []ScriptDescriptor `json:"scripts"`
	ScannedAt time.Time          `json:"scanned_at"`
}

// Len returns the number of scripts in the snapshot.
func (s CatalogSnapshot) Len() int {
	return len(s.Scripts)
}

// Lookup finds a script by file name or display name.
func (s CatalogSnapshot) Lookup(name string) (ScriptDescriptor, bool) {
	for _, d := range s.Scripts {
		if d.FileName == name {
			return d, true
		}
	}
	for _, d := range s.Scripts {
		if d.DisplayName == name {
			return d, true
		}
	}
	return ScriptDescriptor{}, false
}
