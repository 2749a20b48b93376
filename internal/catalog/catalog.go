// Package catalog turns a scripts directory into an ordered, immutable list
// of script descriptors.
package catalog

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"scriptmenu/internal/model"
)

// readBatch is how many directory entries are read per ReadDir call.
const readBatch = 64

// Options are the settings that influence a scan.
type Options struct {
	StripExtension  bool
	ShebangIcon     bool
	DefaultIconName string
}

// dirReader is the part of *os.File a scan uses.
type dirReader interface {
	ReadDir(n int) ([]os.DirEntry, error)
	Close() error
}

func openDir(dir string) (dirReader, error) {
	return os.Open(dir)
}

// Catalog scans script directories. The zero value is not usable; use New.
// A Catalog is safe for concurrent use.
type Catalog struct {
	collator *Collator
	hints    *lru.Cache[hintKey, Interpreter]
	now      func() time.Time
	openDir  func(dir string) (dirReader, error)
}

// New returns a Catalog sorting with the collator of the user's locale.
func New() *Catalog {
	hints, err := lru.New[hintKey, Interpreter](512)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Catalog{
		collator: NewCollator(LocaleFromEnv()),
		hints:    hints,
		now:      time.Now,
		openDir:  openDir,
	}
}

// WithCollator returns a copy of c sorting with col.
func (c *Catalog) WithCollator(col *Collator) *Catalog {
	cp := *c
	cp.collator = col
	return &cp
}

var defaultCatalog = New()

// Scan scans dir with the package default Catalog.
func Scan(dir string, opts Options) model.CatalogSnapshot {
	return defaultCatalog.Scan(dir, opts)
}

// Scan lists the launchable scripts of dir. A missing or unset directory
// yields an empty snapshot; a directory disappearing half way yields the
// entries read so far. A relative dir is resolved against the working
// directory, so every descriptor Path is absolute.
func (c *Catalog) Scan(dir string, opts Options) model.CatalogSnapshot {
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	snap := model.CatalogSnapshot{
		Directory: dir,
		Scripts:   []model.ScriptDescriptor{},
		ScannedAt: c.now(),
	}
	if dir == "" {
		return snap
	}

	names := c.scriptNames(dir)
	for _, name := range names {
		snap.Scripts = append(snap.Scripts, c.describe(dir, name, opts))
	}

	sort.SliceStable(snap.Scripts, func(i, j int) bool {
		return c.collator.Less(snap.Scripts[i].FileName, snap.Scripts[j].FileName)
	})
	return snap
}

// scriptNames returns the names of regular *.sh files in dir.
func (c *Catalog) scriptNames(dir string) []string {
	f, err := c.openDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debug().Err(err).Str("dir", dir).Msg("cannot open scripts dir")
		}
		return nil
	}
	defer f.Close()

	var names []string
	for {
		entries, err := f.ReadDir(readBatch)
		for _, e := range entries {
			if !strings.HasSuffix(e.Name(), model.ScriptSuffix) {
				continue
			}
			if isRegularEntry(dir, e) {
				names = append(names, e.Name())
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Str("dir", dir).Int("read", len(names)).Msg("scripts dir enumeration cut short")
			}
			return names
		}
	}
}

func isRegularEntry(dir string, e os.DirEntry) bool {
	mode := e.Type()
	if mode.IsRegular() {
		return true
	}
	if mode&os.ModeSymlink == 0 {
		return false
	}
	return model.IsRegular(filepath.Join(dir, e.Name()))
}

func (c *Catalog) describe(dir, name string, opts Options) model.ScriptDescriptor {
	path := filepath.Join(dir, name)
	return model.ScriptDescriptor{
		FileName:    name,
		DisplayName: DisplayName(name, opts.StripExtension),
		Icon:        c.resolveIcon(dir, name, path, opts),
		Path:        path,
	}
}

// DisplayName returns name, or name without its last extension when strip
// is set ("backup.tar.sh" -> "backup.tar").
func DisplayName(name string, strip bool) string {
	if !strip {
		return name
	}
	ext := filepath.Ext(name)
	// a file named only ".sh" keeps its name rather than showing a blank entry
	if ext == "" || ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
