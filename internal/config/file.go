package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"scriptmenu/internal/model"
	"scriptmenu/internal/watch"
)

const (
	// EnvConfig overrides the settings file location.
	EnvConfig = "SCRIPTMENU_CONFIG"
	// FileName is the default settings file name.
	FileName = "settings.toml"
)

// fileValues mirrors Values with optional fields so keys missing from the
// file keep their defaults.
type fileValues struct {
	Path             *string `toml:"path" yaml:"path"`
	Strip            *bool   `toml:"strip" yaml:"strip"`
	ShebangIcon      *bool   `toml:"shebang-icon" yaml:"shebang-icon"`
	DefaultIcon      *string `toml:"default-icon" yaml:"default-icon"`
	Notify           *bool   `toml:"notify" yaml:"notify"`
	Log              *bool   `toml:"log" yaml:"log"`
	UseCustomTopIcon *bool   `toml:"use-custom-top-icon" yaml:"use-custom-top-icon"`
	TopIconName      *string `toml:"top-icon-name" yaml:"top-icon-name"`
}

func (f fileValues) apply(v *Values) {
	setString(&v.Path, f.Path)
	setBool(&v.Strip, f.Strip)
	setBool(&v.ShebangIcon, f.ShebangIcon)
	setString(&v.DefaultIcon, f.DefaultIcon)
	setBool(&v.Notify, f.Notify)
	setBool(&v.Log, f.Log)
	setBool(&v.UseCustomTopIcon, f.UseCustomTopIcon)
	setString(&v.TopIconName, f.TopIconName)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// DefaultPath returns $SCRIPTMENU_CONFIG, or settings.toml in the user
// config directory.
func DefaultPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return model.ExpandHome(p), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, model.AppName, FileName), nil
}

// ResolvePath returns flagValue when set, DefaultPath otherwise.
func ResolvePath(flagValue string) (string, error) {
	if p := strings.TrimSpace(flagValue); p != "" {
		return model.ExpandHome(p), nil
	}
	return DefaultPath()
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a settings file. Keys absent from the file keep their
// defaults; unknown keys are ignored.
func Load(path string) (Values, error) {
	v := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("read settings: %w", err)
	}

	var fv fileValues
	if isYAML(path) {
		if err := yaml.Unmarshal(raw, &fv); err != nil {
			return v, fmt.Errorf("parse settings %s: %w", path, err)
		}
	} else {
		meta, err := toml.Decode(string(raw), &fv)
		if err != nil {
			return v, fmt.Errorf("parse settings %s: %w", path, err)
		}
		for _, k := range meta.Undecoded() {
			log.Debug().Str("file", path).Str("key", k.String()).Msg("ignoring unknown setting")
		}
	}
	fv.apply(&v)
	return v, nil
}

// Save writes v to path in the format its extension selects, creating the
// parent directory.
func Save(path string, v Values) error {
	var buf bytes.Buffer
	if isYAML(path) {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
	} else {
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// FileStore is a Settings store backed by a file. Edits to the file are
// picked up automatically and reported per changed key.
type FileStore struct {
	path string
	mem  *Memory

	mu     sync.Mutex
	handle *watch.Handle
}

// Open loads path, creating it with defaults when missing, and starts
// watching it.
func Open(path string) (*FileStore, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("file", path).Msg("creating default settings")
		if err := Save(path, Defaults()); err != nil {
			return nil, err
		}
	}

	v, err := Load(path)
	if err != nil {
		return nil, err
	}

	s := &FileStore{path: path, mem: NewMemory(v)}
	base := filepath.Base(path)
	s.handle = watch.Watch(filepath.Dir(path), s.Reload,
		watch.WithFilter(func(p string) bool { return filepath.Base(p) == base }))
	return s, nil
}

// Path returns the settings file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) String(key string) string { return s.mem.String(key) }
func (s *FileStore) Bool(key string) bool     { return s.mem.Bool(key) }

func (s *FileStore) Connect(key string, fn func(key string)) Subscription {
	return s.mem.Connect(key, fn)
}

// Values returns a copy of the current record.
func (s *FileStore) Values() Values { return s.mem.Values() }

// Reload re-reads the file. A file that fails to parse leaves the current
// values in place.
func (s *FileStore) Reload() {
	v, err := Load(s.path)
	if err != nil {
		log.Warn().Err(err).Str("file", s.path).Msg("keeping previous settings")
		return
	}
	if changed := s.mem.Replace(v); len(changed) > 0 {
		log.Debug().Strs("keys", changed).Str("file", s.path).Msg("settings changed")
	}
}

// Set updates one key and writes the file.
func (s *FileStore) Set(key string, value any) error {
	if err := s.mem.Set(key, value); err != nil {
		return err
	}
	return Save(s.path, s.mem.Values())
}

// Close stops watching the file. It is idempotent.
func (s *FileStore) Close() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	h.Cancel()
}
