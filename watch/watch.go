// Package watch observes the document the rewriter edits. It filters and
// debounces mutation records into batches, and it owns the
// disconnect/reconnect bracket that keeps the rewriter's own writes from
// re-entering the pipeline.
//
// Typical usage:
//
//	w := watch.New(markers, watch.Config{OnBatch: handle})
//	w.Start(doc)
//	w.Bracket(func() { /* writes invisible to the watcher */ })
package watch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/rephrase/dom"
	"github.com/hazyhaar/rephrase/idgen"
)

// State is the watcher lifecycle state.
type State int

const (
	Inactive State = iota
	Active
	Paused
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// ErrNotInactive is returned by Start when the watcher is already running.
var ErrNotInactive = errors.New("watch: watcher already started")

// Batch is the atomic unit delivered to the handler: the filtered,
// compressed records from one debounce window.
type Batch struct {
	ID      string
	Seq     uint64
	Records []dom.Record
}

// Config tunes the Watcher.
type Config struct {
	// Window is the debounce time. Default: 250ms.
	Window time.Duration
	// MaxBuffer flushes immediately when this many records accumulate.
	// Default: 1000.
	MaxBuffer int
	// OnBatch receives each flushed batch. A panic inside it is caught per
	// batch and logged; delivery continues.
	OnBatch func(Batch)

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Window <= 0 {
		c.Window = 250 * time.Millisecond
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = 1000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Watcher observes a Document. Not safe for concurrent use: all calls
// happen on the engine's processing loop.
type Watcher struct {
	cfg     Config
	markers *dom.Markers
	doc     *dom.Document
	state   State

	records []dom.Record
	dropped int
	timer   *time.Timer
	timerCh <-chan time.Time
	seq     uint64
	newID   idgen.Generator
	logger  *slog.Logger
}

// New creates a Watcher. Call Start to begin observing.
func New(markers *dom.Markers, cfg Config) *Watcher {
	cfg.defaults()
	return &Watcher{
		cfg:     cfg,
		markers: markers,
		records: make([]dom.Record, 0, cfg.MaxBuffer),
		newID:   idgen.UUIDv7(),
		logger:  cfg.Logger,
	}
}

// State returns the current lifecycle state.
func (w *Watcher) State() State { return w.state }

// Start attaches to doc and begins observing.
func (w *Watcher) Start(doc *dom.Document) error {
	if w.state != Inactive {
		return ErrNotInactive
	}
	w.doc = doc
	doc.Attach(w.onRecord)
	w.state = Active
	w.logger.Debug("watch: started")
	return nil
}

// Pause suspends delivery without losing the observed document or
// configuration. Records arriving while paused are dropped.
func (w *Watcher) Pause() {
	if w.state == Active {
		w.state = Paused
	}
}

// Resume restores delivery after Pause. A buffer held across the pause is
// rescheduled for the next window.
func (w *Watcher) Resume() {
	if w.state != Paused {
		return
	}
	w.state = Active
	if len(w.records) > 0 {
		w.restartTimer()
	}
}

// Stop tears down observation and resets to Inactive. Buffered records are
// discarded, not flushed: the document may already be gone.
func (w *Watcher) Stop() {
	if w.state == Inactive {
		return
	}
	if w.doc != nil {
		w.doc.Detach()
	}
	w.doc = nil
	w.records = w.records[:0]
	w.stopTimer()
	w.state = Inactive
	w.logger.Debug("watch: stopped")
}

// Bracket runs fn with observation disconnected, reconnecting afterward
// even when fn panics. Every write the rewriter provokes goes through here;
// it is the system's sole critical section.
func (w *Watcher) Bracket(fn func()) {
	if w.state == Inactive || w.doc == nil {
		fn()
		return
	}
	w.doc.Detach()
	defer w.doc.Attach(w.onRecord)
	fn()
}

// onRecord receives one raw record from the document.
func (w *Watcher) onRecord(rec dom.Record) {
	if w.state != Active {
		return
	}
	if !w.wanted(rec) {
		w.dropped++
		return
	}

	w.records = append(w.records, rec)
	if len(w.records) >= w.cfg.MaxBuffer {
		w.Flush()
		return
	}

	// (Re)start the window timer.
	w.restartTimer()
}

// wanted filters raw records before they reach the pipeline: attribute
// changes are never text work, and anything already processed, or sitting
// inside a converted fragment, is finished business.
func (w *Watcher) wanted(rec dom.Record) bool {
	if rec.Op == dom.OpAttr {
		return false
	}
	if rec.Target == nil {
		return false
	}
	if w.markers.Marked(rec.Target) {
		return false
	}
	for cur := rec.Target.Parent; cur != nil; cur = cur.Parent {
		if w.markers.Marked(cur) {
			return false
		}
	}
	return true
}

// TimerC returns the channel that fires when the debounce window expires.
// The engine loop selects on it and calls Flush.
func (w *Watcher) TimerC() <-chan time.Time { return w.timerCh }

// Flush compresses the buffered records into a Batch and hands it to the
// handler. Only an active watcher delivers: a paused one holds its buffer
// until Resume even when an already-armed timer fires. A panicking handler
// loses that one batch, never the watcher.
func (w *Watcher) Flush() {
	w.stopTimer()
	if w.state != Active || len(w.records) == 0 {
		return
	}

	batch := Batch{
		ID:      w.newID(),
		Seq:     w.seq + 1,
		Records: compress(w.records),
	}
	w.seq++
	w.records = w.records[:0]

	if w.cfg.OnBatch == nil {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("watch: batch handler panicked",
					"batch_id", batch.ID, "seq", batch.Seq, "panic", r)
			}
		}()
		w.cfg.OnBatch(batch)
	}()
}

// Dropped returns the number of records discarded by the filter.
func (w *Watcher) Dropped() int { return w.dropped }

func (w *Watcher) restartTimer() {
	w.stopTimer()
	w.timer = time.NewTimer(w.cfg.Window)
	w.timerCh = w.timer.C
}

func (w *Watcher) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
		w.timerCh = nil
	}
}

// compress collapses runs of consecutive text records on the same target to
// the final value (keeping the first old value). Inserts and removes are
// structurally significant and never compressed.
func compress(records []dom.Record) []dom.Record {
	if len(records) <= 1 {
		out := make([]dom.Record, len(records))
		copy(out, records)
		return out
	}

	result := make([]dom.Record, 0, len(records))
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if rec.Op == dom.OpText {
			firstOld := rec.OldValue
			j := i + 1
			for j < len(records) &&
				records[j].Op == dom.OpText &&
				records[j].Target == rec.Target {
				rec = records[j]
				j++
			}
			rec.OldValue = firstOld
			result = append(result, rec)
			i = j - 1
			continue
		}
		result = append(result, rec)
	}
	return result
}
