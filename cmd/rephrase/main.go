// Command rephrase rewrites page text through the phrase-replacement
// pipeline.
//
// Usage:
//
//	rephrase -file page.html                 # rewrite a local file to stdout
//	rephrase -file page.html -markdown       # preview the rewrite as markdown
//	rephrase -url https://example.com        # rewrite a live page until interrupted
//	rephrase -config rephrase.yaml -url ...  # with a config file
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/hazyhaar/rephrase/dom"
	"github.com/hazyhaar/rephrase/engine"
	"github.com/hazyhaar/rephrase/livepage"
	"github.com/hazyhaar/rephrase/tooltip"
)

func main() {
	configPath := flag.String("config", "", "path to rephrase.yaml config file")
	filePath := flag.String("file", "", "rewrite a local HTML file (\"-\" for stdin)")
	pageURL := flag.String("url", "", "rewrite a live page until interrupted")
	markdown := flag.Bool("markdown", false, "emit the rewritten document as markdown (file mode)")
	syncEvery := flag.Duration("sync", 2*time.Second, "how often to push the rewritten tree to the live page")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *filePath, *pageURL, *markdown, *syncEvery); err != nil {
		logger.Error("rephrase: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, filePath, pageURL string, markdown bool, syncEvery time.Duration) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if filePath != "" {
		return runFile(ctx, logger, cfg, filePath, markdown)
	}
	if pageURL != "" {
		return runLive(ctx, logger, cfg, pageURL, syncEvery)
	}

	fmt.Fprintln(os.Stderr, "usage: rephrase -file <path> | -url <url>")
	os.Exit(1)
	return nil
}

func loadConfig(path string) (*engine.Config, error) {
	if path == "" {
		return nil, nil
	}
	cfg, err := engine.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runFile(ctx context.Context, logger *slog.Logger, cfg *engine.Config, path string, markdown bool) error {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	doc, err := dom.Parse(r)
	if err != nil {
		return err
	}

	eng, err := engine.New(doc, &tooltip.Static{}, cfg, logger)
	if err != nil {
		return err
	}
	n, err := eng.RewriteOnce(ctx)
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	logger.Info("rephrase: done", "converted", n, "budget_used", eng.Budget().Used())

	if markdown {
		out, err := doc.HTML()
		if err != nil {
			return err
		}
		md, err := mdConverter().ConvertString(out)
		if err != nil {
			return fmt.Errorf("markdown: %w", err)
		}
		fmt.Println(md)
		return nil
	}
	return doc.Render(os.Stdout)
}

func runLive(ctx context.Context, logger *slog.Logger, cfg *engine.Config, pageURL string, syncEvery time.Duration) error {
	mgr := livepage.NewManager(livepage.Config{Logger: logger})
	if _, err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	bridge := livepage.NewBridge(mgr)
	if err := bridge.Open(ctx, pageURL); err != nil {
		return err
	}
	defer bridge.Close()

	doc, err := bridge.Capture(ctx)
	if err != nil {
		return err
	}
	caps, err := bridge.ProbeCapabilities(ctx)
	if err != nil {
		logger.Warn("rephrase: capability probe failed, assuming the basics", "error", err)
		caps = &tooltip.Static{HighZIndex: true, PointerEvents: true, Transitions: true, Visibility: true}
	}

	eng, err := engine.New(doc, caps, cfg, logger)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	push := func() error {
		var perr error
		eng.Do(func() { perr = bridge.Apply(ctx, doc) })
		if perr != nil {
			return perr
		}
		return bridge.InstallEventCapture(ctx)
	}
	if err := push(); err != nil {
		return err
	}

	go func() {
		err := bridge.PollEvents(ctx, doc, 50*time.Millisecond, eng.HandleEvent)
		if err != nil && ctx.Err() == nil {
			logger.Warn("rephrase: event polling stopped", "error", err)
		}
	}()

	ticker := time.NewTicker(syncEvery)
	defer ticker.Stop()

	// Sync on the write generation, not the conversion count: tooltip
	// show/hide and attribute changes rewrite the tree without converting
	// anything, and the page must see those too.
	lastGen := doc.Generation()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if g := doc.Generation(); g != lastGen {
				if err := push(); err != nil {
					logger.Warn("rephrase: push failed", "error", err)
					continue
				}
				lastGen = g
				logger.Debug("rephrase: pushed rewritten tree",
					"generation", g, "converted", eng.Converted())
			}
		}
	}
}

func mdConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}
