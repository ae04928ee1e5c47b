package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"gitchat/internal/config"
	"gitchat/internal/hub"
	"gitchat/internal/metrics"
	"gitchat/internal/perception"
	"gitchat/internal/session"
)

// app holds what every session of one process shares.
type app struct {
	db     *hub.DB
	parser perception.TreeParser
	heads  perception.HeadFinder
}

// openApp opens the hub database and selects the parser backend. An empty
// database is seeded from hub.seed_file when one is configured.
func openApp(ctx context.Context) (*app, error) {
	db, err := hub.Open(workspacePath(cfg.Hub.DatabasePath))
	if err != nil {
		return nil, err
	}
	a := &app{db: db}

	if cfg.Hub.SeedFile != "" {
		if err := a.seedIfEmpty(ctx, workspacePath(cfg.Hub.SeedFile)); err != nil {
			db.Close()
			return nil, err
		}
	}

	switch cfg.Parser.Backend {
	case config.BackendCoreNLP:
		client := perception.NewCoreNLPClient(perception.CoreNLPConfig{
			BaseURL: cfg.Parser.CoreNLPURL,
			Timeout: cfg.GetParserTimeout(),
		})
		a.parser, a.heads = client, client
	default:
		a.parser = perception.BracketParser{}
	}
	logger.Debug("App ready",
		zap.String("db", db.Path()),
		zap.String("parser", cfg.Parser.Backend))
	return a, nil
}

func (a *app) seedIfEmpty(ctx context.Context, path string) error {
	users, err := a.db.Users(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	f, err := hub.LoadFixture(path)
	if err != nil {
		return err
	}
	logger.Info("Seeding empty hub", zap.String("fixture", path))
	return a.db.Seed(ctx, f)
}

func (a *app) Close() error {
	return a.db.Close()
}

// transducer builds a transducer over parser, or over the backend parser
// when parser is nil.
func (a *app) transducer(parser perception.TreeParser) perception.Transducer {
	if parser == nil {
		parser = a.parser
	}
	return perception.NewTreeTransducer(parser, a.heads, cfg.Parser.ImperativePrefix)
}

// withTree answers input with tree and everything else with the backend.
func (a *app) withTree(input, tree string) perception.TreeParser {
	if tree == "" {
		return a.parser
	}
	return &perception.CannedParser{Trees: map[string]string{input: tree}, Fallback: a.parser}
}

// session starts a conversation with its own hub client.
func (a *app) session(tr perception.Transducer, console session.Console) *session.Session {
	s := session.New(session.Config{
		BotNick:     cfg.Chat.BotNick,
		DefaultNick: cfg.Chat.DefaultNick,
		MaxNickLen:  cfg.Chat.MaxNickLen,
	}, tr, hub.NewClient(a.db), console)
	logger.Debug("Session created", zap.String("id", s.ID()))
	return s
}

// startMetrics serves the metrics endpoint until ctx is done.
func startMetrics(ctx context.Context) {
	if !cfg.IsMetricsEnabled() {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.ListenAddr); err != nil {
			logger.Warn("Metrics endpoint failed", zap.Error(err))
		}
	}()
	logger.Info("Serving metrics", zap.String("addr", cfg.Metrics.ListenAddr))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func workspacePath(p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}

func describeErr(name string, err error) string {
	return fmt.Sprintf("%s: %v", name, err)
}
