// Package textproc applies the pattern table to plain strings. It owns
// matching, the bounded result cache, and the early-bailout pre-check; it
// never touches the DOM.
package textproc

import (
	"log/slog"
	"strings"

	"github.com/hazyhaar/rephrase/pattern"
)

// Options tunes a Processor.
type Options struct {
	// CacheLimit caps the result cache. When the cache grows past the
	// limit the oldest quarter of entries is evicted. Default: 1000.
	CacheLimit int

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.CacheLimit <= 0 {
		o.CacheLimit = 1000
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Processor applies a frozen pattern table to strings. One Processor is
// created per engine; it is not safe for concurrent use, as all calls happen
// on the engine's processing loop.
type Processor struct {
	table  *pattern.Table
	keys   []string
	cache  *resultCache
	logger *slog.Logger
}

// New creates a Processor over table.
func New(table *pattern.Table, opts Options) *Processor {
	opts.defaults()
	return &Processor{
		table:  table,
		keys:   table.Keys(),
		cache:  newResultCache(opts.CacheLimit),
		logger: opts.Logger,
	}
}

// Process applies every pattern in table order and returns the rewritten
// string. Results are cached per input. A single misbehaving pattern is
// logged and skipped; the remaining patterns still apply.
func (p *Processor) Process(text string) string {
	if text == "" {
		return text
	}
	if cached, ok := p.cache.get(text); ok {
		return cached
	}

	out := text
	lowered := strings.ToLower(out)
	for _, key := range p.keys {
		e, ok := p.table.Get(key)
		if !ok {
			continue
		}
		if !e.MayMatch(lowered) {
			continue
		}

		next, err := applyEntry(e, out)
		if err != nil {
			p.logger.Warn("textproc: pattern application failed, skipping key",
				"key", key, "error", err)
			continue
		}
		if next != out {
			out = next
			lowered = strings.ToLower(out)
		}
	}

	p.cache.put(text, out)
	return out
}

// CacheLen reports the number of cached results.
func (p *Processor) CacheLen() int { return p.cache.len() }
