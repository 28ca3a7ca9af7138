package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/embexp/internal/core/transcript"
	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/ports/secondary"
)

// Hardware the runner can drive.
const (
	SupportedArch  = "arm8"
	SupportedBoard = "rpi3"
	DefaultBranch  = "master"
)

// RunServiceImpl implements the RunService interface.
type RunServiceImpl struct {
	experiments secondary.ExperimentRepository
	results     secondary.ResultStore
	board       secondary.BoardDriver
	ledger      secondary.RunLedger
	decoder     *transcript.Decoder
	logger      *slog.Logger
	now         func() time.Time
}

// NewRunService creates a new RunService with injected dependencies.
// ledger may be nil, in which case runs are not recorded.
func NewRunService(
	experiments secondary.ExperimentRepository,
	results secondary.ResultStore,
	board secondary.BoardDriver,
	ledger secondary.RunLedger,
	logger *slog.Logger,
) *RunServiceImpl {
	return &RunServiceImpl{
		experiments: experiments,
		results:     results,
		board:       board,
		ledger:      ledger,
		decoder:     transcript.NewDecoder(logger),
		logger:      logger,
		now:         time.Now,
	}
}

// RunExperiment runs one experiment and records the attempt in the ledger.
func (s *RunServiceImpl) RunExperiment(ctx context.Context, req primary.RunRequest) (*primary.RunReport, error) {
	start := s.now()
	report, err := s.run(ctx, req)
	s.record(ctx, req, report, err, start)
	return report, err
}

func (s *RunServiceImpl) run(ctx context.Context, req primary.RunRequest) (*primary.RunReport, error) {
	opts := req.Options
	id, err := models.ParseExperimentID(req.ExperimentID)
	if err != nil {
		return nil, err
	}
	if id.Arch != SupportedArch {
		return nil, fmt.Errorf("%w: architecture %s", ErrUnsupported, id.Arch)
	}
	board := opts.BoardType
	if board == "" {
		board = SupportedBoard
	}
	if board != SupportedBoard {
		return nil, fmt.Errorf("%w: board %s", ErrUnsupported, board)
	}
	mode, err := secondary.ParseConnMode(opts.ConnMode)
	if err != nil {
		return nil, err
	}

	setup, err := s.loadSetup(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.board.EnsureClean(ctx, opts.ForceCleanup); err != nil {
		return nil, err
	}
	branch := opts.Branch
	if branch == "" {
		branch = DefaultBranch
	}
	if err := s.board.ChangeBranch(ctx, branch); err != nil {
		return nil, err
	}

	report, err := s.execute(ctx, setup, board, mode, opts)
	if err != nil {
		return report, err
	}

	if !report.NoMismatch && !opts.ForceResults && !opts.IgnoreMismatch {
		return report, fmt.Errorf("%s: %w", id, ErrResultMismatch)
	}
	return report, nil
}

func (s *RunServiceImpl) loadSetup(ctx context.Context, id models.ExperimentID) (secondary.ExperimentSetup, error) {
	valid, err := s.experiments.IsValid(ctx, id)
	if err != nil {
		return secondary.ExperimentSetup{}, err
	}
	if !valid {
		return secondary.ExperimentSetup{}, fmt.Errorf("not a valid experiment: %s", id)
	}

	s.logger.Debug("reading input files", "experiment", id.String())
	code, err := s.experiments.Code(ctx, id)
	if err != nil {
		return secondary.ExperimentSetup{}, err
	}
	setup := secondary.ExperimentSetup{ID: id, Code: code}
	for n := 1; n <= id.Type.InputCount(); n++ {
		input, err := s.experiments.Input(ctx, id, n)
		if err != nil {
			return secondary.ExperimentSetup{}, err
		}
		setup.Inputs = append(setup.Inputs, input)
	}
	return setup, nil
}

// execute configures and runs the board and stores the outputs. Unless
// NoCleanup is set the checkout is force-cleaned on every return path, also
// after cancellation.
func (s *RunServiceImpl) execute(ctx context.Context, setup secondary.ExperimentSetup, board string, mode secondary.ConnMode, opts primary.RunOptions) (report *primary.RunReport, err error) {
	if !opts.NoCleanup {
		defer func() {
			s.logger.Info("cleaning progplatform")
			if cerr := s.board.EnsureClean(context.WithoutCancel(ctx), true); cerr != nil {
				err = errors.Join(err, fmt.Errorf("failed to clean up board: %w", cerr))
			}
		}()
	}

	id := setup.ID
	s.logger.Info("generating experiment code", "experiment", id.String())
	if err := s.board.Configure(ctx, board, setup); err != nil {
		return nil, err
	}

	s.logger.Info("running experiment", "experiment", id.String(), "mode", string(mode))
	raw, err := s.board.Execute(ctx, mode)
	if err != nil {
		return nil, err
	}

	outcome, err := s.decoder.Decode(id.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	if snap, ok := outcome.(models.CacheSnapshot); ok {
		snap.Sets = transcript.Clean(snap.Sets)
		outcome = snap
	}
	result := models.EncodeResult(outcome)

	report = &primary.RunReport{
		ExperimentID: id.String(),
		Outcome:      outcome,
		Result:       string(result),
		NoMismatch:   true,
	}
	if opts.DryRun {
		return report, nil
	}

	s.logger.Info("saving experiment data", "experiment", id.String())
	rev, err := s.board.CurrentRevision(ctx)
	if err != nil {
		return report, err
	}
	runKey := models.NewRunKey(rev, board)
	report.RunKey = string(runKey)
	outputs := []models.Output{
		{Name: models.OutputTranscript, Data: raw},
		{Name: models.OutputResult, Data: result},
	}
	noMismatch, err := s.results.WriteResults(ctx, runKey, id, outputs, opts.ForceResults)
	if err != nil {
		return report, err
	}
	report.NoMismatch = noMismatch
	report.Written = noMismatch || opts.ForceResults
	return report, nil
}

// record appends the run to the ledger. Ledger failures are logged only.
func (s *RunServiceImpl) record(ctx context.Context, req primary.RunRequest, report *primary.RunReport, runErr error, start time.Time) {
	if s.ledger == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	id, err := s.ledger.GetNextID(ctx)
	if err != nil {
		s.logger.Warn("failed to record run", "error", err)
		return
	}
	rec := &secondary.RunRecord{
		ID:           id,
		ExperimentID: req.ExperimentID,
		Forced:       req.Options.ForceResults,
		NoMismatch:   true,
		StartedAt:    start.UTC().Format(time.RFC3339),
		DurationMS:   s.now().Sub(start).Milliseconds(),
	}
	if report != nil {
		rec.RunKey = report.RunKey
		rec.Result = report.Result
		rec.NoMismatch = report.NoMismatch
		if report.Outcome != nil {
			rec.Outcome = report.Outcome.Kind()
		}
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := s.ledger.Record(ctx, rec); err != nil {
		s.logger.Warn("failed to record run", "error", err)
	}
}

// Ensure RunServiceImpl implements the interface
var _ primary.RunService = (*RunServiceImpl)(nil)
