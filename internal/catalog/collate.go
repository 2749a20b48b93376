package catalog

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator orders file names for the user's locale. collate.Collator is not
// safe for concurrent use, hence the mutex.
type Collator struct {
	mu  sync.Mutex
	col *collate.Collator
}

// NewCollator returns a collator for tag.
func NewCollator(tag language.Tag) *Collator {
	return &Collator{col: collate.New(tag)}
}

// Compare orders a and b by locale, falling back to byte order so the result
// is a total order.
func (c *Collator) Compare(a, b string) int {
	c.mu.Lock()
	r := c.col.CompareString(a, b)
	c.mu.Unlock()
	if r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func (c *Collator) Less(a, b string) bool {
	return c.Compare(a, b) < 0
}

// LocaleFromEnv derives the collation language from LC_ALL, LC_COLLATE and
// LANG, in that order ("de_DE.UTF-8" -> de-DE). C/POSIX and unparsable
// values give language.Und.
func LocaleFromEnv() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_COLLATE", "LANG"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		return parseLocale(v)
	}
	return language.Und
}

func parseLocale(v string) language.Tag {
	v, _, _ = strings.Cut(v, ".")
	v, _, _ = strings.Cut(v, "@")
	if v == "" || v == "C" || v == "POSIX" {
		return language.Und
	}
	tag, err := language.Parse(strings.ReplaceAll(v, "_", "-"))
	if err != nil {
		return language.Und
	}
	return tag
}
