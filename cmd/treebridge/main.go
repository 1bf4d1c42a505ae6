// Command treebridge runs the render-host side of a tree bridge: it owns a
// live document, ships sanitized mutation batches to the configured sinks
// and applies inbound init, event and return messages.
//
// Usage:
//
//	treebridge -config treebridge.yaml       # sinks, journal and HTTP from YAML
//	treebridge -html page.html -addr :8080   # serve POST /messages, batches on stdout
//	treebridge -stdin                        # read inbound messages as JSON lines
//	treebridge -config c.yaml -replay <id>   # re-apply a journaled session, then serve
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/treebridge/bridge"
	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dom"
	"github.com/hazyhaar/treebridge/journal"
)

func main() {
	configPath := flag.String("config", "", "path to treebridge.yaml config file")
	htmlPath := flag.String("html", "", "HTML file to load as the live document (overrides document.file)")
	addr := flag.String("addr", "", "HTTP listen address (overrides http.addr)")
	stdin := flag.Bool("stdin", false, "read inbound messages as JSON lines from stdin")
	replaySession := flag.String("replay", "", "journal session whose inbound messages are re-applied at startup")
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

	opts := runOptions{
		configPath: *configPath,
		htmlPath:   *htmlPath,
		addr:       *addr,
		stdin:      *stdin,
		replay:     *replaySession,
	}
	if err := run(ctx, logger, opts); err != nil {
		logger.Error("treebridge: fatal", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath string
	htmlPath   string
	addr       string
	stdin      bool
	replay     string
}

func run(ctx context.Context, logger *slog.Logger, opts runOptions) error {
	cfg := bridge.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = bridge.LoadConfigFile(opts.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if opts.htmlPath != "" {
		cfg.Document.File = opts.htmlPath
	}
	if opts.addr != "" {
		cfg.HTTP.Addr = opts.addr
	}
	if cfg.HTTP.Addr == "" && !opts.stdin {
		fmt.Fprintln(os.Stderr, "usage: treebridge [-config <file>] [-html <file>] (-addr <addr> | -stdin)")
		os.Exit(2)
	}

	doc, err := loadDocument(cfg.Document.File, cfg.Document.Policy)
	if err != nil {
		return err
	}

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		if j, err = journal.Open(cfg.Journal.Path, journal.WithLogger(logger)); err != nil {
			return err
		}
		defer j.Close()
	}

	sinks, err := bridge.SinksFromConfig(cfg, j, nil, logger)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		sinks = append(sinks, bridge.NewStdoutSink(nil))
	}

	bopts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithSinks(sinks...),
		bridge.WithEvaluator(bridge.EvaluatorFunc(logReturn(logger))),
	}
	if j != nil {
		bopts = append(bopts, bridge.WithJournal(j))
	}
	b := bridge.New(doc, cfg, bopts...)
	b.Start(ctx)
	defer b.Stop()

	if opts.replay != "" {
		n, err := b.Replay(ctx, opts.replay)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		logger.Info("treebridge: replay done", "session", opts.replay, "messages", n)
	}

	errc := make(chan error, 2)
	if cfg.HTTP.Addr != "" {
		srv := newServer(cfg.HTTP.Addr, b)
		go func() {
			logger.Info("treebridge: listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http: %w", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
	}
	if opts.stdin {
		go watchStdin(ctx, os.Stdin, b, logger, cfg.HTTP.Addr != "", errc)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

func loadDocument(path, policy string) (*dom.Document, error) {
	if path == "" {
		return dom.New(), nil
	}
	p, err := dom.PolicyByName(policy)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	doc, err := dom.ParseSanitized(f, p)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func newServer(addr string, b *bridge.Bridge) *http.Server {
	r := chi.NewRouter()
	b.RegisterHTTP(r)
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// readMessages applies newline-delimited inbound messages until EOF. A
// malformed line is logged and skipped.
func readMessages(ctx context.Context, r io.Reader, b *bridge.Bridge, logger *slog.Logger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := wire.Decode(line)
		if err != nil {
			logger.Warn("treebridge: skip malformed message", "error", err)
			continue
		}
		if err := b.Deliver(ctx, msg); err != nil {
			return err
		}
	}
	return sc.Err()
}

// watchStdin feeds stdin to the bridge. End of input stops the command
// only when stdin is its sole input; with HTTP serving it just logs.
func watchStdin(ctx context.Context, r io.Reader, b *bridge.Bridge, logger *slog.Logger, serving bool, errc chan<- error) {
	err := readMessages(ctx, r, b, logger)
	if err == nil && serving {
		logger.Info("treebridge: stdin closed, still serving http")
		return
	}
	errc <- err
}

// logReturn is the default evaluator: the command has no logic-side
// runtime, so returned results are only logged.
func logReturn(logger *slog.Logger) func(context.Context, json.RawMessage) error {
	return func(_ context.Context, ret json.RawMessage) error {
		logger.Info("treebridge: return", "bytes", len(ret))
		return nil
	}
}
