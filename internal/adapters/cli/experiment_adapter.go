package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/example/embexp/internal/ports/primary"
)

// ExperimentAdapter is a thin adapter that translates CLI operations to
// ExperimentService calls.
type ExperimentAdapter struct {
	service primary.ExperimentService
	out     io.Writer
}

// NewExperimentAdapter creates a new ExperimentAdapter with the given service.
func NewExperimentAdapter(service primary.ExperimentService, out io.Writer) *ExperimentAdapter {
	return &ExperimentAdapter{service: service, out: out}
}

// Show prints generation info, runs, program and inputs of an experiment.
func (a *ExperimentAdapter) Show(ctx context.Context, experimentID string) (*primary.ExperimentDetails, error) {
	details, err := a.service.ShowExperiment(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to show experiment: %w", err)
	}
	rule := strings.Repeat("-", 40)
	short := strings.Repeat("=", 20)

	fmt.Fprintln(a.out, "generation info:")
	fmt.Fprintln(a.out, rule)
	for _, g := range details.GenFiles {
		fmt.Fprintf(a.out, "- %s\n", g)
	}
	fmt.Fprintln(a.out)

	fmt.Fprintln(a.out, "runs:")
	fmt.Fprintln(a.out, rule)
	for _, r := range details.Runs {
		result := r.Result
		if result == "" {
			result = color.New(color.FgYellow).Sprint("incomplete")
		}
		fmt.Fprintf(a.out, "- %s: %s\n", r.RunKey, result)
	}
	fmt.Fprintln(a.out)

	fmt.Fprintln(a.out, "configuration:")
	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "prog_id = %s\n", details.ProgramID)
	fmt.Fprintln(a.out, short)
	fmt.Fprintln(a.out, short)
	fmt.Fprintln(a.out, details.Code)
	fmt.Fprintln(a.out, short)
	fmt.Fprintln(a.out, short)
	for _, input := range details.Inputs {
		fmt.Fprint(a.out, input)
		fmt.Fprintln(a.out, short)
	}
	return details, nil
}

// Extract creates a single-run experiment and prints its id.
func (a *ExperimentAdapter) Extract(ctx context.Context, req primary.ExtractRequest, quiet bool) (*primary.ExtractResponse, error) {
	resp, err := a.service.ExtractExperiment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to extract experiment: %w", err)
	}
	if !quiet {
		fmt.Fprintf(a.out, "exp_new_id = %s\n", resp.NewExperimentID)
	}
	return resp, nil
}

// Remove deletes an experiment.
func (a *ExperimentAdapter) Remove(ctx context.Context, experimentID string) error {
	if err := a.service.RemoveExperiment(ctx, experimentID); err != nil {
		return fmt.Errorf("failed to remove experiment: %w", err)
	}
	return nil
}

// SplitLists writes list files and reports skipped entries and list sizes.
func (a *ExperimentAdapter) SplitLists(ctx context.Context, req primary.SplitListsRequest) (*primary.SplitListsResponse, error) {
	resp, err := a.service.SplitLists(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to write lists: %w", err)
	}
	for _, w := range resp.Warnings {
		fmt.Fprintf(a.out, "%s %s\n", color.New(color.FgYellow).Sprint("warning:"), w)
	}
	for i, p := range resp.Paths {
		fmt.Fprintf(a.out, "%s (%d experiments)\n", p, resp.Lengths[i])
	}
	return resp, nil
}
