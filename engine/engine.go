package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/hazyhaar/rephrase/dom"
	"github.com/hazyhaar/rephrase/pattern"
	"github.com/hazyhaar/rephrase/textproc"
	"github.com/hazyhaar/rephrase/tooltip"
	"github.com/hazyhaar/rephrase/watch"
)

// Engine ties the pipeline together around one document. All document
// access after Start happens on the engine's loop goroutine; external
// callers reach it through Do and HandleEvent.
type Engine struct {
	cfg     *Config
	doc     *dom.Document
	table   *pattern.Table
	proc    *textproc.Processor
	markers *dom.Markers
	budget  *dom.Budget
	mod     *dom.Modifier
	trav    *dom.Traverser
	watcher *watch.Watcher
	tips    *tooltip.Manager

	tasks chan func()
	stop  chan struct{}
	done  chan struct{}

	ctx       context.Context
	started   bool
	converted atomic.Int64
	logger    *slog.Logger
}

// New builds an Engine for doc using the given capabilities report. A nil
// cfg gets defaults; a nil logger falls back to slog.Default.
func New(doc *dom.Document, caps tooltip.Capabilities, cfg *Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	table, err := cfg.BuildTable()
	if err != nil {
		return nil, fmt.Errorf("engine: build pattern table: %w", err)
	}

	markers := dom.NewMarkers()
	budget := dom.NewBudget(cfg.BudgetCeiling, logger)
	proc := textproc.New(table, textproc.Options{
		CacheLimit: cfg.CacheLimit,
		Logger:     logger,
	})
	mod := dom.NewModifier(doc, markers, budget, logger)
	trav := dom.NewTraverser(proc, mod, markers, budget, dom.TraverserOptions{
		ChunkSize: cfg.ChunkSize,
		Logger:    logger,
	})

	e := &Engine{
		cfg:     cfg,
		doc:     doc,
		table:   table,
		proc:    proc,
		markers: markers,
		budget:  budget,
		mod:     mod,
		trav:    trav,
		tasks:   make(chan func()),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
	}
	e.watcher = watch.New(markers, watch.Config{
		Window:    cfg.DebounceWindow,
		MaxBuffer: cfg.DebounceMaxBuffer,
		OnBatch:   e.onBatch,
		Logger:    logger,
	})
	e.tips = tooltip.NewManager(doc, markers, caps, e.watcher.Bracket, tooltip.Config{
		ShowDelay: cfg.TooltipShowDelay,
		Gap:       cfg.TooltipGap,
		Viewport:  tooltip.Rect{W: cfg.ViewportWidth, H: cfg.ViewportHeight},
		Logger:    logger,
	})
	return e, nil
}

// Document returns the document the engine operates on.
func (e *Engine) Document() *dom.Document { return e.doc }

// Budget returns the shared operation budget.
func (e *Engine) Budget() *dom.Budget { return e.budget }

// Converted returns the total number of text nodes that received at least
// one wrapper so far.
func (e *Engine) Converted() int64 { return e.converted.Load() }

// Tooltip returns the tooltip manager. After Start, reach it through Do.
func (e *Engine) Tooltip() *tooltip.Manager { return e.tips }

// RewriteOnce performs a single full conversion pass without starting the
// loop. Useful for static documents and one-shot tooling.
func (e *Engine) RewriteOnce(ctx context.Context) (int, error) {
	var n int
	var err error
	e.watcher.Bracket(func() {
		n, err = e.trav.ProcessChunks(ctx, e.doc.Root())
	})
	e.converted.Add(int64(n))
	return n, err
}

// Start runs the initial conversion pass, begins observing the document,
// and launches the processing loop.
func (e *Engine) Start(ctx context.Context) error {
	if e.started {
		return fmt.Errorf("engine: already started")
	}
	e.ctx = ctx

	if err := e.watcher.Start(e.doc); err != nil {
		return err
	}

	n, err := e.RewriteOnce(ctx)
	if err != nil {
		e.watcher.Stop()
		return fmt.Errorf("engine: initial pass: %w", err)
	}
	e.logger.Info("engine: initial conversion done",
		"converted", n, "budget_used", e.budget.Used())

	e.started = true
	go e.loop(ctx)
	return nil
}

// Stop shuts the loop down and waits for it to finish. Safe to call once.
func (e *Engine) Stop() {
	if !e.started {
		return
	}
	close(e.stop)
	<-e.done
	e.started = false
}

// Do runs fn on the loop goroutine and waits for it. Everything that
// touches the document after Start goes through here. Must not be called
// from within a task or batch handler.
func (e *Engine) Do(fn func()) {
	ran := make(chan struct{})
	select {
	case e.tasks <- func() { fn(); close(ran) }:
		<-ran
	case <-e.done:
	}
}

// HandleEvent forwards one interaction event to the tooltip layer.
func (e *Engine) HandleEvent(ev tooltip.Event) {
	e.Do(func() { e.tips.HandleEvent(ev) })
}

// loop is the single goroutine that owns the document after Start.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)
	defer e.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case fn := <-e.tasks:
			fn()
		case <-e.watcher.TimerC():
			e.watcher.Flush()
		case <-e.tips.TimerC():
			e.tips.ShowPending()
		}
	}
}

func (e *Engine) shutdown() {
	e.trav.Cancel()
	e.tips.Dispose()
	e.watcher.Stop()
	e.logger.Debug("engine: stopped",
		"converted", e.converted.Load(),
		"dropped_records", e.watcher.Dropped())
}

// onBatch reconverts the subtrees a mutation batch touched. The work runs
// inside the bracket, so the writes it provokes never come back as a new
// batch.
func (e *Engine) onBatch(b watch.Batch) {
	total := 0
	for _, rec := range b.Records {
		var root *html.Node
		switch rec.Op {
		case dom.OpInsert, dom.OpText:
			root = rec.Target
		default:
			continue
		}
		if root == nil {
			continue
		}
		e.watcher.Bracket(func() {
			n, err := e.trav.ProcessChunks(e.ctx, root)
			if err != nil {
				e.logger.Debug("engine: batch reconversion interrupted",
					"batch_id", b.ID, "error", err)
			}
			total += n
		})
	}
	if total > 0 {
		e.converted.Add(int64(total))
		e.logger.Debug("engine: reconverted after mutations",
			"batch_id", b.ID, "seq", b.Seq, "converted", total)
	}
}
