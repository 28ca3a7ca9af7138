package secondary

import (
	"context"
	"fmt"

	"github.com/example/embexp/internal/models"
)

// ConnMode selects how the board is driven for one run.
type ConnMode string

const (
	ConnTry   ConnMode = "try"
	ConnRun   ConnMode = "run"
	ConnReset ConnMode = "reset"
)

// ParseConnMode parses a connection mode; the empty string means ConnTry.
func ParseConnMode(s string) (ConnMode, error) {
	switch ConnMode(s) {
	case "", ConnTry:
		return ConnTry, nil
	case ConnRun, ConnReset:
		return ConnMode(s), nil
	default:
		return "", fmt.Errorf("invalid connection mode %q (want try, run or reset)", s)
	}
}

// ExperimentSetup is everything the board driver needs to configure one run.
type ExperimentSetup struct {
	ID     models.ExperimentID
	Code   string
	Inputs []models.StateMap
}

// BoardDriver defines the secondary port for the board and its firmware checkout.
// A driver is a singleton: only one experiment may be configured at a time.
type BoardDriver interface {
	// EnsureClean verifies the checkout has no local changes, resetting it first if force is set.
	EnsureClean(ctx context.Context, force bool) error

	// ChangeBranch checks out the firmware branch to run with.
	ChangeBranch(ctx context.Context, branch string) error

	// Configure writes the build configuration and the encoded setup code for one experiment.
	Configure(ctx context.Context, boardType string, setup ExperimentSetup) error

	// Execute builds, flashes and runs the configured experiment and returns the raw transcript.
	Execute(ctx context.Context, mode ConnMode) ([]byte, error)

	// CurrentRevision returns the revision of the checked out firmware.
	CurrentRevision(ctx context.Context) (string, error)

	// BranchRevision returns the revision a branch points to.
	BranchRevision(ctx context.Context, branch string) (string, error)
}
