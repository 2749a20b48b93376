package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"scriptmenu/internal/model"
)

// siblingImageExts are checked in order; the first existing image wins.
var siblingImageExts = []string{".svg", ".png"}

// resolveIcon applies the fixed priority order:
// sibling image > shebang hint > configured default > fallback.
func (c *Catalog) resolveIcon(dir, name, path string, opts Options) model.IconRef {
	base := strings.TrimSuffix(name, model.ScriptSuffix)
	for _, ext := range siblingImageExts {
		img := filepath.Join(dir, base+ext)
		if model.IsRegular(img) {
			return model.Custom(img)
		}
	}

	if opts.ShebangIcon {
		interp := c.interpreter(path)
		return model.FromExecutableHint(interp.Name, interp.ThemedIcon())
	}

	if name := strings.TrimSpace(opts.DefaultIconName); name != "" {
		return model.Named(name)
	}
	return model.Named(model.IconBullet)
}

type hintKey struct {
	path    string
	size    int64
	modTime int64
}

// interpreter returns the cached interpreter of path, reading the file when
// it changed since the last scan.
func (c *Catalog) interpreter(path string) Interpreter {
	info, err := os.Stat(path)
	if err != nil {
		return Interpreter{}
	}
	key := hintKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if interp, ok := c.hints.Get(key); ok {
		return interp
	}
	interp := ReadInterpreter(path)
	c.hints.Add(key, interp)
	return interp
}
