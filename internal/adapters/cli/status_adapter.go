package cli

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/example/embexp/internal/ports/primary"
)

// Status output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// StatusSections selects which experiment lists the text report prints.
type StatusSections struct {
	Programs        bool
	Examples        bool
	Counterexamples bool
	Inconclusive    bool
	Others          bool
}

// StatusAdapter is a thin adapter that translates CLI operations to StatusService calls.
type StatusAdapter struct {
	service primary.StatusService
	out     io.Writer
}

// NewStatusAdapter creates a new StatusAdapter with the given service.
func NewStatusAdapter(service primary.StatusService, out io.Writer) *StatusAdapter {
	return &StatusAdapter{service: service, out: out}
}

// Status prints the status report in the given format.
func (a *StatusAdapter) Status(ctx context.Context, req primary.StatusRequest, format string, sections StatusSections) (*primary.StatusReport, error) {
	report, err := a.service.Status(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to collect status: %w", err)
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return nil, fmt.Errorf("failed to encode status: %w", err)
		}
		return report, enc.Close()
	case FormatText, "":
		a.printText(report, sections)
		return report, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func (a *StatusAdapter) printText(r *primary.StatusReport, sections StatusSections) {
	fmt.Fprintf(a.out, "run_id = %s\n\n", r.RunKey)
	fmt.Fprintf(a.out, "n_progs = %d (this number is only based on the number of progs subdirectories)\n", len(r.Programs))
	fmt.Fprintf(a.out, "n_exps  = %d\n\n\n", r.Experiments)

	fmt.Fprintf(a.out, "n_notrun     = %d\n", len(r.NotRun))
	fmt.Fprintf(a.out, "n_incomplete = %d\n\n", len(r.Incomplete))

	fmt.Fprintf(a.out, "n_others       = %d\n", len(r.Others))
	fmt.Fprintf(a.out, "n_inconclusive = %d\n", len(r.Inconclusive))
	fmt.Fprintf(a.out, "n_examples     = %d\n", len(r.Examples))
	fmt.Fprintf(a.out, "n_cexamples    = %d\n", len(r.Counterexamples))
	fmt.Fprintf(a.out, "n_exceptions   = %d\n", len(r.Exceptions))
	fmt.Fprintf(a.out, "n_snapshots    = %d\n\n\n", len(r.Snapshots))

	lists := []struct {
		enabled bool
		title   string
		items   []string
	}{
		{sections.Programs, "programs:", r.Programs},
		{sections.Examples, "validation examples:", r.Examples},
		{sections.Counterexamples, "validation counterexamples:", r.Counterexamples},
		{sections.Inconclusive, "inconclusive examples:", r.Inconclusive},
		{sections.Others, "unclear result:", r.Others},
	}
	for _, l := range lists {
		if !l.enabled {
			continue
		}
		fmt.Fprintln(a.out, l.title)
		fmt.Fprintln(a.out, frame)
		for _, item := range l.items {
			fmt.Fprintln(a.out, item)
		}
		fmt.Fprint(a.out, "\n\n")
	}
}
