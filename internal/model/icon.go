package model

import (
	"encoding/json"
	"fmt"
)

// IconKind discriminates the IconRef variants.
type IconKind int

const (
	// IconNamed is a themed icon name (configured default or fallback).
	IconNamed IconKind = iota
	// IconCustom is an image file sitting next to the script.
	IconCustom
	// IconFromExecutable is derived from the script's interpreter line.
	IconFromExecutable
)

func (k IconKind) String() string {
	switch k {
	case IconNamed:
		return "named"
	case IconCustom:
		return "custom"
	case IconFromExecutable:
		return "executable"
	default:
		return fmt.Sprintf("IconKind(%d)", int(k))
	}
}

// IconRef identifies the icon of a menu entry. Build it with Named, Custom or
// FromExecutableHint; the zero value is Named("").
type IconRef struct {
	kind        IconKind
	name        string // themed name for IconNamed and IconFromExecutable
	path        string // image path for IconCustom
	interpreter string // interpreter for IconFromExecutable, may be empty
}

// Named returns a themed icon reference.
func Named(name string) IconRef {
	return IconRef{kind: IconNamed, name: name}
}

// Custom returns a reference to an image file.
func Custom(path string) IconRef {
	return IconRef{kind: IconCustom, path: path}
}

// FromExecutableHint returns an icon derived from the interpreter line.
// themed is the icon name a desktop theme would show for that interpreter.
func FromExecutableHint(interpreter, themed string) IconRef {
	return IconRef{kind: IconFromExecutable, name: themed, interpreter: interpreter}
}

func (r IconRef) Kind() IconKind      { return r.kind }
func (r IconRef) Name() string        { return r.name }
func (r IconRef) Path() string        { return r.path }
func (r IconRef) Interpreter() string { return r.interpreter }

// String renders the reference the way Gio.icon_new_for_string accepts it:
// a path for custom images, a themed name otherwise.
func (r IconRef) String() string {
	if r.kind == IconCustom {
		return r.path
	}
	return r.name
}

type iconJSON struct {
	Kind        string `json:"kind"`
	Name        string `json:"name,omitempty"`
	Path        string `json:"path,omitempty"`
	Interpreter string `json:"interpreter,omitempty"`
}

func (r IconRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(iconJSON{
		Kind:        r.kind.String(),
		Name:        r.name,
		Path:        r.path,
		Interpreter: r.interpreter,
	})
}

func (r *IconRef) UnmarshalJSON(b []byte) error {
	var raw iconJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "named", "":
		*r = Named(raw.Name)
	case "custom":
		*r = Custom(raw.Path)
	case "executable":
		*r = FromExecutableHint(raw.Interpreter, raw.Name)
	default:
		return fmt.Errorf("unknown icon kind %q", raw.Kind)
	}
	return nil
}

// Glyph maps the icon to a single terminal cell.
func (r IconRef) Glyph() string {
	if r.kind == IconCustom {
		return GlyphCustom
	}
	return GlyphBullet
}

// Tag is a short label for renderers that cannot show images,
// e.g. "py" for a python script.
func (r IconRef) Tag() string {
	switch r.kind {
	case IconCustom:
		return "img"
	case IconFromExecutable:
		if r.interpreter == "" {
			return "sh"
		}
		if len(r.interpreter) > 4 {
			return r.interpreter[:4]
		}
		return r.interpreter
	default:
		return ""
	}
}
