// Package config is the settings surface the core reads from: a flat set of
// string and boolean keys plus change subscriptions.
package config

import (
	"errors"
	"fmt"
	"sync"
)

// Setting keys.
const (
	KeyPath             = "path"
	KeyStrip            = "strip"
	KeyShebangIcon      = "shebang-icon"
	KeyDefaultIcon      = "default-icon"
	KeyNotify           = "notify"
	KeyLog              = "log"
	KeyUseCustomTopIcon = "use-custom-top-icon"
	KeyTopIconName      = "top-icon-name"
)

// Keys lists every known key in file order.
var Keys = []string{
	KeyPath,
	KeyStrip,
	KeyShebangIcon,
	KeyDefaultIcon,
	KeyNotify,
	KeyLog,
	KeyUseCustomTopIcon,
	KeyTopIconName,
}

var (
	ErrUnknownKey = errors.New("unknown setting")
	ErrWrongType  = errors.New("wrong value type for setting")
)

// Settings is read at every use; callers never cache values.
type Settings interface {
	String(key string) string
	Bool(key string) bool
	// Connect calls fn with the key after its value changed, until the
	// returned Subscription is closed. fn may run on any goroutine.
	Connect(key string, fn func(key string)) Subscription
}

// Subscription is a change callback registration.
type Subscription interface {
	Close()
}

// Values is one complete settings record.
type Values struct {
	Path             string `toml:"path" yaml:"path" json:"path"`
	Strip            bool   `toml:"strip" yaml:"strip" json:"strip"`
	ShebangIcon      bool   `toml:"shebang-icon" yaml:"shebang-icon" json:"shebang-icon"`
	DefaultIcon      string `toml:"default-icon" yaml:"default-icon" json:"default-icon"`
	Notify           bool   `toml:"notify" yaml:"notify" json:"notify"`
	Log              bool   `toml:"log" yaml:"log" json:"log"`
	UseCustomTopIcon bool   `toml:"use-custom-top-icon" yaml:"use-custom-top-icon" json:"use-custom-top-icon"`
	TopIconName      string `toml:"top-icon-name" yaml:"top-icon-name" json:"top-icon-name"`
}

// Defaults returns the values used for keys missing from the store.
func Defaults() Values {
	return Values{Notify: true}
}

func (v *Values) field(key string) (any, bool) {
	switch key {
	case KeyPath:
		return &v.Path, true
	case KeyStrip:
		return &v.Strip, true
	case KeyShebangIcon:
		return &v.ShebangIcon, true
	case KeyDefaultIcon:
		return &v.DefaultIcon, true
	case KeyNotify:
		return &v.Notify, true
	case KeyLog:
		return &v.Log, true
	case KeyUseCustomTopIcon:
		return &v.UseCustomTopIcon, true
	case KeyTopIconName:
		return &v.TopIconName, true
	}
	return nil, false
}

// Get returns the value of key as string or bool.
func (v Values) Get(key string) (any, bool) {
	f, ok := v.field(key)
	if !ok {
		return nil, false
	}
	switch p := f.(type) {
	case *string:
		return *p, true
	case *bool:
		return *p, true
	}
	return nil, false
}

// Set assigns key. The value type must match the key.
func (v *Values) Set(key string, value any) error {
	f, ok := v.field(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	switch p := f.(type) {
	case *string:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants a string, got %T", ErrWrongType, key, value)
		}
		*p = s
	case *bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s wants a bool, got %T", ErrWrongType, key, value)
		}
		*p = b
	}
	return nil
}

// Diff returns the keys whose values differ between v and other.
func (v Values) Diff(other Values) []string {
	var changed []string
	for _, k := range Keys {
		a, _ := v.Get(k)
		b, _ := other.Get(k)
		if a != b {
			changed = append(changed, k)
		}
	}
	return changed
}

type subscriber struct {
	key string
	fn  func(string)
}

// registry holds change callbacks. Callbacks run outside the lock.
type registry struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber
}

func (r *registry) connect(key string, fn func(string)) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = make(map[int]subscriber)
	}
	id := r.next
	r.next++
	r.subs[id] = subscriber{key: key, fn: fn}
	return &subscription{close: func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}}
}

func (r *registry) emit(keys []string) {
	if len(keys) == 0 {
		return
	}
	r.mu.Lock()
	var calls []subscriber
	for _, k := range keys {
		for _, s := range r.subs {
			if s.key == k {
				calls = append(calls, subscriber{key: k, fn: s.fn})
			}
		}
	}
	r.mu.Unlock()

	for _, c := range calls {
		c.fn(c.key)
	}
}

type subscription struct {
	once  sync.Once
	close func()
}

func (s *subscription) Close() { s.once.Do(s.close) }

// Memory is an in-process Settings store.
type Memory struct {
	mu   sync.RWMutex
	vals Values
	reg  registry
}

// NewMemory returns a store holding v.
func NewMemory(v Values) *Memory {
	return &Memory{vals: v}
}

func (m *Memory) String(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, _ := m.vals.Get(key)
	str, _ := s.(string)
	return str
}

func (m *Memory) Bool(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, _ := m.vals.Get(key)
	v, _ := b.(bool)
	return v
}

func (m *Memory) Connect(key string, fn func(key string)) Subscription {
	return m.reg.connect(key, fn)
}

// Values returns a copy of the current record.
func (m *Memory) Values() Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vals
}

// Set assigns one key and notifies its subscribers if the value changed.
func (m *Memory) Set(key string, value any) error {
	m.mu.Lock()
	next := m.vals
	if err := next.Set(key, value); err != nil {
		m.mu.Unlock()
		return err
	}
	changed := m.vals.Diff(next)
	m.vals = next
	m.mu.Unlock()

	m.reg.emit(changed)
	return nil
}

// Replace swaps in v and notifies subscribers of every changed key.
// It returns the changed keys.
func (m *Memory) Replace(v Values) []string {
	m.mu.Lock()
	changed := m.vals.Diff(v)
	m.vals = v
	m.mu.Unlock()

	m.reg.emit(changed)
	return changed
}
