// Package cli contains the output adapters used by the command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/ports/primary"
)

var frame = strings.Repeat("=", 40)

// RunAdapter is a thin adapter that translates CLI operations to RunService
// and BatchService calls.
type RunAdapter struct {
	runs    primary.RunService
	batches primary.BatchService
	out     io.Writer
}

// NewRunAdapter creates a new RunAdapter with the given services.
func NewRunAdapter(runs primary.RunService, batches primary.BatchService, out io.Writer) *RunAdapter {
	return &RunAdapter{runs: runs, batches: batches, out: out}
}

// Run runs one experiment. With printEval the decoded outcome is printed in
// the machine-readable form consumed by calling scripts.
func (a *RunAdapter) Run(ctx context.Context, req primary.RunRequest, printEval bool) (*primary.RunReport, error) {
	report, err := a.runs.RunExperiment(ctx, req)
	if report != nil && printEval {
		PrintEval(a.out, report.Outcome, report.Result)
	}
	if err != nil {
		return report, err
	}
	if !report.NoMismatch {
		fmt.Fprintln(a.out, color.New(color.FgYellow).Sprint("warning: the output files differ"))
	}
	return report, nil
}

// PrintEval writes "result = <blob>" for pair outcomes and the cleaned cache
// listing for snapshots.
func PrintEval(w io.Writer, outcome models.Outcome, result string) {
	snap, ok := outcome.(models.CacheSnapshot)
	if !ok {
		fmt.Fprintf(w, "result = %s\n", result)
		return
	}
	fmt.Fprintln(w, frame)
	for _, set := range snap.Sets {
		fmt.Fprintf(w, "set %d\n", set.Index)
		for _, line := range set.Lines {
			fmt.Fprintf(w, "\tline %d, tag: %s\n", line.Line, line.Tag)
		}
	}
	fmt.Fprintln(w, frame)
}

// Batch runs a batch and prints one line per experiment and a final verdict.
func (a *RunAdapter) Batch(ctx context.Context, req primary.BatchRequest) (*primary.BatchSummary, error) {
	req.OnItem = func(item primary.ItemResult) {
		if item.Err != nil {
			fmt.Fprintf(a.out, "%s %s: %v\n", color.New(color.FgRed).Sprint("FAIL"), item.ExperimentID, item.Err)
			return
		}
		fmt.Fprintf(a.out, "%s %s: %s\n", color.New(color.FgGreen).Sprint("OK  "), item.ExperimentID, item.Result)
	}

	summary, err := a.batches.RunBatch(ctx, req)
	if summary == nil {
		return nil, err
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, frame)
	fmt.Fprintln(a.out, frame)
	fmt.Fprintln(a.out, frame)
	if summary.AllSucceeded() && err == nil {
		fmt.Fprintln(a.out, color.New(color.FgGreen, color.Bold).Sprint("ALL EXPERIMENTS COMPLETED"))
	} else {
		fmt.Fprintln(a.out, color.New(color.FgRed, color.Bold).Sprint("SOME EXPERIMENTS DID NOT COMPLETE"))
	}
	fmt.Fprintf(a.out, "succeeded: %d, failed: %d\n", summary.Succeeded, summary.Failed)
	return summary, err
}
