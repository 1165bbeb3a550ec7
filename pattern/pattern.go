// Package pattern holds the ordered phrase-replacement table that drives
// the rewriter. A table is built once, frozen, and shared for the process
// lifetime; its key order is significant: earlier keys claim overlapping
// matches before later ones.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Entry is one compiled replacement rule.
//
// Pattern is compiled case-insensitive and word-boundary anchored. Keywords
// are cheap lowercase substrings used as a pre-check before the full regex
// runs: a text containing none of them cannot match the pattern. The
// pre-check may produce false negatives on exotic rules, never false
// positives, since the regex still decides.
type Entry struct {
	Key         string
	Pattern     *regexp.Regexp
	Replacement string
	Keywords    []string

	// Transform optionally rewrites a single match. When nil the match is
	// replaced through Replacement (capture references allowed).
	Transform func(match string) string
}

// Convert produces the replacement text for one matched substring.
func (e *Entry) Convert(match string) string {
	if e.Transform != nil {
		return e.Transform(match)
	}
	return e.Pattern.ReplaceAllString(match, e.Replacement)
}

// MayMatch is the early-bailout pre-check. The caller passes the text
// already lowercased so the scan is one pass per keyword.
func (e *Entry) MayMatch(lowered string) bool {
	if len(e.Keywords) == 0 {
		return true
	}
	for _, kw := range e.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Table is an ordered, frozen collection of entries.
type Table struct {
	keys    []string
	entries map[string]*Entry
}

// NewTable builds a Table from pre-compiled entries. Key order is preserved.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{entries: make(map[string]*Entry, len(entries))}
	for i := range entries {
		e := entries[i]
		if e.Key == "" {
			return nil, fmt.Errorf("pattern: entry %d has empty key", i)
		}
		if e.Pattern == nil {
			return nil, fmt.Errorf("pattern: entry %q has nil pattern", e.Key)
		}
		if _, dup := t.entries[e.Key]; dup {
			return nil, fmt.Errorf("pattern: duplicate key %q", e.Key)
		}
		t.keys = append(t.keys, e.Key)
		t.entries[e.Key] = &e
	}
	return t, nil
}

// Keys returns the table's keys in construction order. The returned slice
// is a copy; the table itself never changes after construction.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Get returns the entry for key.
func (t *Table) Get(key string) (*Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.keys) }

// Each calls fn for every entry in table order, stopping early when fn
// returns false.
func (t *Table) Each(fn func(*Entry) bool) {
	for _, k := range t.keys {
		if !fn(t.entries[k]) {
			return
		}
	}
}

// Rule is the uncompiled form of an entry, as it appears in rule files.
type Rule struct {
	Key         string   `yaml:"key"`
	Match       string   `yaml:"match"`
	Replacement string   `yaml:"replacement"`
	Keywords    []string `yaml:"keywords"`
}

// Compile builds a Table from rules. Each Match is wrapped in a
// case-insensitive, word-boundary anchored group. A malformed expression is
// a build-time error; there is no runtime recovery for bad rule files.
func Compile(rules []Rule) (*Table, error) {
	entries := make([]Entry, 0, len(rules))
	for i, r := range rules {
		if r.Match == "" {
			return nil, fmt.Errorf("pattern: rule %d (%q) has empty match", i, r.Key)
		}
		re, err := regexp.Compile(`(?i)\b(?:` + r.Match + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("pattern: rule %q: %w", r.Key, err)
		}
		kws := r.Keywords
		if len(kws) == 0 {
			if kw := literalKeyword(r.Match); kw != "" {
				kws = []string{kw}
			}
		}
		entries = append(entries, Entry{
			Key:         r.Key,
			Pattern:     re,
			Replacement: r.Replacement,
			Keywords:    kws,
		})
	}
	return NewTable(entries)
}

// literalKeyword derives a bailout keyword from a rule expression: the
// leading run of plain word characters, lowercased. Rules that start with a
// metacharacter get no derived keyword and skip the pre-check.
func literalKeyword(expr string) string {
	var b strings.Builder
	for _, r := range expr {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		break
	}
	if b.Len() < 3 {
		return ""
	}
	return strings.ToLower(b.String())
}

// defaultRules is the built-in table. The canonical rule set ships as a
// versioned data file; this subset keeps the library usable without one.
var defaultRules = []Rule{
	{Key: "hillary", Match: `hillary(?: (?:rodham )?clinton)?`, Replacement: "Crooked Hillary"},
	{Key: "cruz", Match: `ted cruz`, Replacement: "Lyin' Ted"},
	{Key: "rubio", Match: `marco rubio`, Replacement: "Little Marco"},
	{Key: "media", Match: `(?:mainstream|lamestream) media`, Replacement: "the Fake News Media"},
	{Key: "tremendous", Match: `very good`, Replacement: "tremendous"},
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the process-wide built-in table. The same frozen table is
// returned on every call.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Compile(defaultRules)
		if err != nil {
			panic("pattern: built-in rules failed to compile: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}
