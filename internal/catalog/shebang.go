package catalog

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"scriptmenu/internal/model"
)

// maxShebang bounds how much of a script is read to find its interpreter.
const maxShebang = 256

// Interpreter is what a script's #! line says about how it runs.
type Interpreter struct {
	Name string // normalized, e.g. "python", "bash"; empty without a #! line
	Line string // the raw #! line without the marker
}

// ThemedIcon maps the interpreter to the icon name desktop themes use for
// that content type.
func (i Interpreter) ThemedIcon() string {
	switch i.Name {
	case "", "sh", "bash", "zsh", "dash", "ksh", "fish", "busybox":
		return model.IconShellScript
	case "python":
		return "text-x-python"
	case "perl":
		return "application-x-perl"
	case "ruby":
		return "application-x-ruby"
	case "node", "nodejs", "deno", "bun":
		return "application-javascript"
	case "php":
		return "application-x-php"
	case "lua":
		return "text-x-lua"
	default:
		return model.IconGenericScript
	}
}

// ReadInterpreter reads the #! line of path. Unreadable files and files
// without one yield the zero Interpreter.
func ReadInterpreter(path string) Interpreter {
	f, err := os.Open(path)
	if err != nil {
		return Interpreter{}
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, maxShebang)
	head, _ := r.Peek(maxShebang)
	line, _, _ := strings.Cut(string(head), "\n")
	return ParseShebang(line)
}

// ParseShebang parses a first line such as "#!/usr/bin/env -S python3 -u".
func ParseShebang(line string) Interpreter {
	if !strings.HasPrefix(line, "#!") {
		return Interpreter{}
	}
	raw := strings.TrimSpace(strings.TrimSuffix(line[2:], "\r"))
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Interpreter{Line: raw}
	}

	prog := filepath.Base(fields[0])
	if prog == "env" {
		prog = ""
		for _, f := range fields[1:] {
			if strings.HasPrefix(f, "-") || strings.Contains(f, "=") {
				continue
			}
			prog = filepath.Base(f)
			break
		}
	}
	return Interpreter{Name: normalizeInterpreter(prog), Line: raw}
}

// normalizeInterpreter strips version suffixes: python3.12 -> python.
func normalizeInterpreter(prog string) string {
	prog = strings.ToLower(prog)
	return strings.TrimRight(prog, "0123456789.-")
}
