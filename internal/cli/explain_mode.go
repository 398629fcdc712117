// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nikoshell/niko/internal/budget"
	"github.com/nikoshell/niko/internal/chunker"
	"github.com/nikoshell/niko/internal/prompt"
	"github.com/nikoshell/niko/internal/provider"
	"github.com/nikoshell/niko/internal/runtime"
)

// runExplain explains either a file (-f, possibly stdin) through the
// chunking pipeline, or a command/tool named on the command line.
func (a *App) runExplain(args []string) error {
	fs := flag.NewFlagSet("explain", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	file := fs.String("f", "", "file to explain ('-' for stdin)")
	stream := fs.Bool("stream", false, "stream tokens as they arrive")
	providerName := fs.String("p", "", "provider override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	name, pcfg, err := a.cfg.Provider(*providerName)
	if err != nil {
		return err
	}
	p, err := provider.FromConfig(name, pcfg)
	if err != nil {
		return err
	}

	if *file != "" {
		return a.explainFile(p, *file, *stream)
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("nothing to explain: pass -f <file> or a command name")
	}
	return a.explainCommand(p, query)
}

func (a *App) explainFile(p provider.Provider, file string, stream bool) error {
	var (
		raw []byte
		err error
	)
	if file == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	opts := chunker.Options{
		Stream: stream,
		OnSegmentStart: func(index, total int, seg chunker.Segment) {
			if total > 1 {
				fmt.Fprintf(a.stderr, "— part %d/%d (lines %d-%d) —\n",
					index, total, seg.StartLine, seg.EndLine)
			}
		},
	}
	if stream {
		opts.OnToken = func(tok string) { fmt.Fprint(a.stdout, tok) }
	}

	res, err := chunker.NewPipeline().Explain(context.Background(), p, string(raw), opts)
	if stream && res != nil && len(res.SegmentResults) > 0 {
		fmt.Fprintln(a.stdout)
	}
	if res != nil {
		a.printResult(res, stream)
	}
	if err != nil {
		if res != nil && len(res.SegmentResults) > 0 {
			fmt.Fprintf(a.stderr, "\nstopped after %d of %d part(s)\n",
				len(res.SegmentResults), res.TotalSegments)
		}
		return err
	}
	return nil
}

func (a *App) printResult(res *chunker.Result, streamed bool) {
	if res.TotalSegments == 0 {
		fmt.Fprintln(a.stderr, "nothing to explain: input is empty")
		return
	}

	if !streamed && res.TotalSegments > 1 {
		for i, sr := range res.SegmentResults {
			fmt.Fprintf(a.stdout, "— part %d (lines %d-%d) —\n%s\n\n",
				i+1, sr.StartLine, sr.EndLine, sr.Explanation)
		}
	}

	// A streamed single segment already printed its text token by token.
	if res.Summary != "" && !(streamed && res.TotalSegments == 1) {
		fmt.Fprintf(a.stdout, "Summary\n-------\n%s\n", res.Summary)
	}
	if len(res.FollowUpQuestions) > 0 {
		fmt.Fprintf(a.stdout, "\nFollow-up questions\n-------------------\n")
		for i, q := range res.FollowUpQuestions {
			fmt.Fprintf(a.stdout, "%d. %s\n", i+1, q)
		}
	}
}

func (a *App) explainCommand(p provider.Provider, query string) error {
	text, err := runtime.NewRunner().RunWithRetry(context.Background(), p, runtime.Request{
		SystemPrompt: prompt.CmdExplainPrompt(),
		UserPrompt:   query,
		MaxTokens:    budget.SynthesisTokens,
	})
	if err != nil {
		return fmt.Errorf("explanation failed: %w", err)
	}
	fmt.Fprintln(a.stdout, text)
	return nil
}
