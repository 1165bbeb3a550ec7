package textproc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hazyhaar/rephrase/pattern"
)

// Segment describes one match inside one string: the text it covered, the
// converted text that replaces it, and its byte range [Start, End).
// Segments are transient: produced here, consumed immediately by the DOM
// layer, never stored.
type Segment struct {
	Original  string
	Converted string
	Start     int
	End       int
}

// IdentifySegments returns the ordered, non-overlapping match spans for
// text. A candidate span is accepted only when it does not intersect a span
// already claimed by an earlier key in table order (first-claim-wins). The
// result is sorted ascending by Start; the input is never mutated.
func (p *Processor) IdentifySegments(text string) []Segment {
	if text == "" {
		return nil
	}

	lowered := strings.ToLower(text)
	var segs []Segment
	for _, key := range p.keys {
		e, ok := p.table.Get(key)
		if !ok || !e.MayMatch(lowered) {
			continue
		}

		locs, err := findAll(e, text)
		if err != nil {
			p.logger.Warn("textproc: segment match failed, skipping key",
				"key", key, "error", err)
			continue
		}

		for _, loc := range locs {
			if overlapsAny(segs, loc[0], loc[1]) {
				continue
			}
			match := text[loc[0]:loc[1]]
			converted, err := convertMatch(e, match)
			if err != nil {
				p.logger.Warn("textproc: segment conversion failed, skipping match",
					"key", key, "error", err)
				continue
			}
			segs = append(segs, Segment{
				Original:  match,
				Converted: converted,
				Start:     loc[0],
				End:       loc[1],
			})
		}
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	return segs
}

func overlapsAny(segs []Segment, start, end int) bool {
	for _, s := range segs {
		if start < s.End && end > s.Start {
			return true
		}
	}
	return false
}

// applyEntry and the helpers below isolate a single pattern application so
// a panicking Transform degrades to a skipped key, not a failed call.

func applyEntry(e *pattern.Entry, text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = text
			err = fmt.Errorf("pattern %q panicked: %v", e.Key, r)
		}
	}()

	if e.Transform != nil {
		return e.Pattern.ReplaceAllStringFunc(text, e.Transform), nil
	}
	return e.Pattern.ReplaceAllString(text, e.Replacement), nil
}

func findAll(e *pattern.Entry, text string) (locs [][]int, err error) {
	defer func() {
		if r := recover(); r != nil {
			locs = nil
			err = fmt.Errorf("pattern %q panicked: %v", e.Key, r)
		}
	}()
	return e.Pattern.FindAllStringIndex(text, -1), nil
}

func convertMatch(e *pattern.Entry, match string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("pattern %q panicked: %v", e.Key, r)
		}
	}()
	return e.Convert(match), nil
}
