package config

import (
	"path/filepath"
	"strings"

	"scriptmenu/internal/catalog"
	"scriptmenu/internal/model"
)

// TopIcon resolves the icon of the menu's top-level entry.
func TopIcon(s Settings) model.IconRef {
	fallback := model.Named(model.IconTopDefault)
	if !s.Bool(KeyUseCustomTopIcon) {
		return fallback
	}
	name := strings.TrimSpace(s.String(KeyTopIconName))
	if name == "" {
		return fallback
	}
	if isIconFile(name) {
		path := model.ExpandHome(name)
		if !model.IsRegular(path) {
			return fallback
		}
		return model.Custom(path)
	}
	return model.Named(name)
}

func isIconFile(name string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "~/") {
		return true
	}
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".svg") || strings.HasSuffix(lower, ".png")
}

// ScriptsDir returns the configured scripts directory as an absolute path
// with ~ expanded, or "" when unset. Relative values are taken from the
// working directory.
func ScriptsDir(s Settings) string {
	dir := model.ExpandHome(s.String(KeyPath))
	if dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// CatalogOptions reads the scan settings.
func CatalogOptions(s Settings) catalog.Options {
	return catalog.Options{
		StripExtension:  s.Bool(KeyStrip),
		ShebangIcon:     s.Bool(KeyShebangIcon),
		DefaultIconName: s.String(KeyDefaultIcon),
	}
}
