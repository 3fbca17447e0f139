package eval

import (
	"regexp"
	"strings"
	"sync"
)

// Matcher is the capability interface behind the Match term
// (spec.md §4.2), kept separate from expr.go so an alternative engine
// (e.g. one backed by RE2 syntax extensions or a different dialect)
// can be swapped in without touching expression evaluation.
type Matcher interface {
	Match(pattern, flags, s string) (bool, error)
}

// regexMatcher is the default Matcher, backed by the standard
// library's RE2 engine. Patterns are compiled once per distinct
// (pattern, flags) pair and cached, since the same Match term is
// typically evaluated once per row of a Filter.
type regexMatcher struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewRegexMatcher returns a Matcher backed by regexp.
func NewRegexMatcher() Matcher {
	return &regexMatcher{cache: make(map[string]*regexp.Regexp)}
}

func (m *regexMatcher) Match(pattern, flags, s string) (bool, error) {
	key := flags + "\x00" + pattern
	m.mu.Lock()
	re, ok := m.cache[key]
	m.mu.Unlock()
	if !ok {
		compiled, err := regexp.Compile(translateFlags(pattern, flags))
		if err != nil {
			return false, err
		}
		re = compiled
		m.mu.Lock()
		m.cache[key] = re
		m.mu.Unlock()
	}
	return re.MatchString(s), nil
}

// translateFlags maps the RethinkDB-lineage flags string onto Go's
// inline (?flags) group syntax (spec.md §4.2 supplemented from
// original_source). Two forms are accepted: an already-Go-shaped
// inline group ("(?i)"), passed through unchanged and prepended to the
// pattern, and a bare flag-set string ("i", "ims"), whose recognized
// letters (i, m, s, x) are collected into one inline group. Unknown
// letters are dropped rather than rejected, matching the parser's
// forward-compatibility stance on unrecognized term options.
func translateFlags(pattern, flags string) string {
	if flags == "" {
		return pattern
	}
	if strings.HasPrefix(flags, "(?") {
		return flags + pattern
	}
	var sb strings.Builder
	for _, c := range flags {
		switch c {
		case 'i', 'm', 's', 'x':
			sb.WriteRune(c)
		}
	}
	if sb.Len() == 0 {
		return pattern
	}
	return "(?" + sb.String() + ")" + pattern
}
