package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"gitchat/internal/hub"
	"gitchat/internal/perception"
	"gitchat/internal/session"
	"gitchat/internal/types"
)

// runInteractiveChat runs one session on the terminal until bye or EOF.
func runInteractiveChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	startMetrics(ctx)

	colored := cfg.Chat.Color && term.IsTerminal(int(os.Stdout.Fd()))
	console := session.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), colored)
	err = a.session(a.transducer(nil), console).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runCommand handles one command line as a chat session would.
func runCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	input := joinArgs(args)
	logger.Info("Processing command", zap.String("input", input))

	console := session.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), false)
	s := a.session(a.transducer(a.withTree(input, treeInput)), console)
	return s.Handle(ctx, input)
}

// runParse prints the sentence structure of a command.
func runParse(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var parser perception.TreeParser = perception.BracketParser{}
	var heads perception.HeadFinder
	if treeInput == "" {
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		parser, heads = a.parser, a.heads
	}

	input := joinArgs(args)
	if treeInput != "" {
		parser = &perception.CannedParser{Trees: map[string]string{input: treeInput}}
	}
	tr := perception.NewTreeTransducer(parser, heads, cfg.Parser.ImperativePrefix)
	sentence, err := tr.Transduce(ctx, input)
	if errors.Is(err, perception.ErrRejected) {
		fmt.Fprintln(cmd.OutOrStdout(), "rejected: not an imperative sentence")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), sentence.String())
	return nil
}

// runBatch runs every script file as its own session.
func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var jobs []session.Job
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		job, err := session.ReadJob(path, f)
		f.Close()
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	startMetrics(ctx)

	factory := func(_ context.Context, job session.Job, console session.Console) (*session.Session, error) {
		parser := &perception.CannedParser{Trees: job.Trees, Fallback: a.parser}
		return a.session(a.transducer(parser), console), nil
	}
	results, err := session.RunBatch(ctx, jobs, factory, batchParallel)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		fmt.Fprintf(out, "== %s ==\n", r.Name)
		for _, line := range r.Output {
			fmt.Fprintln(out, line)
		}
		if r.Err != nil {
			failed++
			fmt.Fprintln(out, describeErr("error", r.Err))
			logger.Warn("Session failed", zap.String("script", r.Name), zap.Error(r.Err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions failed", failed, len(results))
	}
	return nil
}

func runHubSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	f, err := hub.LoadFixture(args[0])
	if err != nil {
		return err
	}
	db, err := hub.Open(workspacePath(cfg.Hub.DatabasePath))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Seed(ctx, f); err != nil {
		return fmt.Errorf("failed to seed %s: %w", db.Path(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users into %s\n", len(f.Users), db.Path())
	return nil
}

func runHubUsers(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	db, err := hub.Open(workspacePath(cfg.Hub.DatabasePath))
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := db.Users(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No users. Load some with: gitchat hub seed <fixture.yaml>")
		return nil
	}
	for _, line := range session.Render(types.Wrap(types.ListOf(types.User), users)) {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
