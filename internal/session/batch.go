package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"gitchat/internal/logging"
)

// ScriptSeparator splits a script line into the user input and its
// pre-parsed tree.
const ScriptSeparator = "|||"

// Job is one scripted conversation.
type Job struct {
	Name string
	// Lines are fed to the session in order.
	Lines []string
	// Trees maps an input line to its bracketed parse.
	Trees map[string]string
}

// ReadJob reads a script. Each line is either plain input or
// "input ||| (ROOT ...)"; blank lines and lines starting with # are skipped.
func ReadJob(name string, r io.Reader) (Job, error) {
	job := Job{Name: name, Trees: make(map[string]string)}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		input, tree, ok := strings.Cut(line, ScriptSeparator)
		input = strings.Join(strings.Fields(input), " ")
		if ok {
			tree = strings.TrimSpace(tree)
			if input == "" || tree == "" {
				return Job{}, fmt.Errorf("%s:%d: empty input or tree", name, n)
			}
			job.Trees[input] = tree
		}
		job.Lines = append(job.Lines, input)
	}
	if err := sc.Err(); err != nil {
		return Job{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return job, nil
}

// Result is the transcript of one job.
type Result struct {
	Name   string
	Output []string
	Err    error
}

// Factory creates the session for a job around its console.
type Factory func(ctx context.Context, job Job, console Console) (*Session, error)

// RunBatch runs jobs concurrently, at most limit at a time (no limit when
// limit <= 0). A session's fatal error is recorded in its Result; a factory
// error or cancellation of ctx stops the whole batch. Results keep the order
// of jobs.
func RunBatch(ctx context.Context, jobs []Job, factory Factory, limit int) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	logging.Session("running %d scripted sessions (limit %d)", len(jobs), limit)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			console := NewScript(job.Lines...)
			s, err := factory(ctx, job, console)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			runErr := s.Run(ctx)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logging.SessionDebug("%s finished: err=%v", job.Name, runErr)
			results[i] = Result{Name: job.Name, Output: console.Output(), Err: runErr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
