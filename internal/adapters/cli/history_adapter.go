package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/embexp/internal/ports/primary"
)

// HistoryAdapter is a thin adapter that translates CLI operations to HistoryService calls.
type HistoryAdapter struct {
	service primary.HistoryService
	out     io.Writer
}

// NewHistoryAdapter creates a new HistoryAdapter with the given service.
func NewHistoryAdapter(service primary.HistoryService, out io.Writer) *HistoryAdapter {
	return &HistoryAdapter{service: service, out: out}
}

// List prints recorded runs as a table.
func (a *HistoryAdapter) List(ctx context.Context, filters primary.HistoryFilters) ([]*primary.RunEntry, error) {
	runs, err := a.service.ListRuns(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No runs recorded.")
		return runs, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tEXPERIMENT\tRUN KEY\tOUTCOME\tDURATION")
	fmt.Fprintln(w, "--\t-------\t----------\t-------\t-------\t--------")
	for _, r := range runs {
		outcome := r.Outcome
		switch {
		case r.Error != "":
			outcome = color.New(color.FgRed).Sprint("error")
		case !r.NoMismatch && r.Forced:
			outcome += " (overwritten)"
		case !r.NoMismatch:
			outcome += " (mismatch)"
		}
		runKey := r.RunKey
		if runKey == "" {
			runKey = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dms\n", r.ID, r.StartedAt, r.ExperimentID, runKey, outcome, r.DurationMS)
	}
	w.Flush()

	for _, r := range runs {
		if r.Error != "" {
			fmt.Fprintf(a.out, "%s: %s\n", r.ID, r.Error)
		}
	}
	return runs, nil
}
