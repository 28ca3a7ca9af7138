package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/ports/secondary"
)

// StatusServiceImpl implements the StatusService interface.
type StatusServiceImpl struct {
	experiments secondary.ExperimentRepository
	board       secondary.BoardDriver
	logger      *slog.Logger
}

// NewStatusService creates a new StatusService with injected dependencies.
// board may be nil if every request names its run key.
func NewStatusService(experiments secondary.ExperimentRepository, board secondary.BoardDriver, logger *slog.Logger) *StatusServiceImpl {
	return &StatusServiceImpl{experiments: experiments, board: board, logger: logger}
}

// Status classifies every valid experiment of an architecture by its stored
// result for one run key.
func (s *StatusServiceImpl) Status(ctx context.Context, req primary.StatusRequest) (*primary.StatusReport, error) {
	arch := req.Arch
	if arch == "" {
		arch = SupportedArch
	}
	runKey, err := s.runKey(ctx, req)
	if err != nil {
		return nil, err
	}

	report := &primary.StatusReport{Arch: arch, RunKey: string(runKey)}
	if report.Programs, err = s.experiments.ListPrograms(ctx, arch); err != nil {
		return nil, err
	}
	ids, err := s.experiments.ListArch(ctx, arch)
	if err != nil {
		return nil, err
	}
	report.Experiments = len(ids)

	for _, id := range ids {
		name := id.String()
		class, err := s.classify(ctx, id, runKey)
		if err != nil {
			return nil, err
		}
		switch class {
		case "":
			report.NotRun = append(report.NotRun, name)
		case classIncomplete:
			report.Incomplete = append(report.Incomplete, name)
		case models.ResultExample:
			report.Examples = append(report.Examples, name)
		case models.ResultCounterexample:
			report.Counterexamples = append(report.Counterexamples, name)
		case models.ResultInconclusive:
			report.Inconclusive = append(report.Inconclusive, name)
		case models.ResultException:
			report.Exceptions = append(report.Exceptions, name)
		case models.ResultSnapshot:
			report.Snapshots = append(report.Snapshots, name)
		default:
			report.Others = append(report.Others, name)
		}
	}
	s.logger.Debug("status collected", "arch", arch, "run_key", string(runKey), "experiments", report.Experiments)
	return report, nil
}

const classIncomplete models.ResultClass = "incomplete"

// classify returns "" for experiments without a run directory for runKey.
func (s *StatusServiceImpl) classify(ctx context.Context, id models.ExperimentID, runKey models.RunKey) (models.ResultClass, error) {
	keys, err := s.experiments.RunKeys(ctx, id)
	if err != nil {
		return "", err
	}
	found := false
	for _, k := range keys {
		if k == runKey {
			found = true
			break
		}
	}
	if !found {
		return "", nil
	}

	incomplete, err := s.experiments.IsIncomplete(ctx, id, runKey)
	if err != nil {
		return "", err
	}
	if incomplete {
		return classIncomplete, nil
	}
	result, err := s.experiments.Result(ctx, id, runKey)
	if errors.Is(err, os.ErrNotExist) {
		return classIncomplete, nil
	}
	if err != nil {
		return "", err
	}
	return models.ClassifyResult(result), nil
}

func (s *StatusServiceImpl) runKey(ctx context.Context, req primary.StatusRequest) (models.RunKey, error) {
	if req.RunKey != "" {
		return models.RunKey(req.RunKey), nil
	}
	branch := req.Branch
	if branch == "" {
		branch = DefaultBranch
	}
	board := req.BoardType
	if board == "" {
		board = SupportedBoard
	}
	if s.board == nil {
		return "", errors.New("no run key given and no progplatform configured")
	}
	rev, err := s.board.BranchRevision(ctx, branch)
	if err != nil {
		return "", fmt.Errorf("failed to determine run key: %w", err)
	}
	return models.NewRunKey(rev, board), nil
}

// Ensure StatusServiceImpl implements the interface
var _ primary.StatusService = (*StatusServiceImpl)(nil)
