package app

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/poller"
	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/ports/secondary"
)

// BatchServiceImpl implements the BatchService interface.
type BatchServiceImpl struct {
	runs        primary.RunService
	experiments secondary.ExperimentRepository
	board       secondary.BoardDriver
	logger      *slog.Logger
}

// NewBatchService creates a new BatchService with injected dependencies.
func NewBatchService(
	runs primary.RunService,
	experiments secondary.ExperimentRepository,
	board secondary.BoardDriver,
	logger *slog.Logger,
) *BatchServiceImpl {
	return &BatchServiceImpl{
		runs:        runs,
		experiments: experiments,
		board:       board,
		logger:      logger,
	}
}

// RunBatch runs the selected experiments strictly one after the other. A
// failing experiment does not stop the batch; cancellation stops it after the
// experiment in progress has been cleaned up.
func (s *BatchServiceImpl) RunBatch(ctx context.Context, req primary.BatchRequest) (*primary.BatchSummary, error) {
	class, err := models.ParseExperimentClass(req.Class)
	if err != nil {
		return nil, err
	}

	ids, err := s.selectExperiments(ctx, class, req)
	if err != nil {
		return nil, err
	}

	var items []primary.ItemResult
	for id, err := range ids {
		if err != nil {
			return nil, err
		}
		if req.Prefix != "" && !strings.HasPrefix(id.Hash, req.Prefix) {
			continue
		}
		item := s.runOne(ctx, id, req.Options)
		items = append(items, item)
		if req.OnItem != nil {
			req.OnItem(item)
		}
		if ctx.Err() != nil {
			s.logger.Warn("batch interrupted", "completed", len(items))
			break
		}
	}

	summary := Summarize(items)
	return &summary, ctx.Err()
}

func (s *BatchServiceImpl) runOne(ctx context.Context, id models.ExperimentID, opts primary.RunOptions) primary.ItemResult {
	item := primary.ItemResult{ExperimentID: id.String()}
	report, err := s.runs.RunExperiment(ctx, primary.RunRequest{ExperimentID: id.String(), Options: opts})
	if err != nil {
		s.logger.Error("experiment failed", "experiment", id.String(), "error", err)
		item.Err = err
		return item
	}
	if report.Outcome != nil {
		item.Outcome = report.Outcome.Kind()
	}
	item.Result = report.Result
	return item
}

// selectExperiments returns the experiments of the batch as a sequence: the
// explicit list, every valid experiment of the class, or a poller over the
// incomplete ones.
func (s *BatchServiceImpl) selectExperiments(ctx context.Context, class models.ExperimentClass, req primary.BatchRequest) (iter.Seq2[models.ExperimentID, error], error) {
	if len(req.IDs) > 0 {
		ids, err := s.validateList(ctx, class, req.IDs)
		if err != nil {
			return nil, err
		}
		return sliceSeq(ids), nil
	}

	switch req.Mode {
	case primary.BatchModeAll, "":
		ids, err := s.experiments.ListClass(ctx, class)
		if err != nil {
			return nil, err
		}
		return sliceSeq(ids), nil
	case primary.BatchModeFix:
		runKey, err := s.defaultRunKey(ctx, req.Options)
		if err != nil {
			return nil, err
		}
		s.logger.Info("fixing incomplete experiments", "class", class.String(), "run_key", string(runKey))
		p := poller.New(s.experiments.ListIncomplete, class, runKey, poller.Options{
			MaxRounds:  req.Rounds,
			RoundDelay: req.Delay,
		}, s.logger)
		return p.All(ctx), nil
	default:
		return nil, fmt.Errorf("unknown batch mode: %s", req.Mode)
	}
}

func (s *BatchServiceImpl) validateList(ctx context.Context, class models.ExperimentClass, raw []string) ([]models.ExperimentID, error) {
	ids := make([]models.ExperimentID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseExperimentID(r)
		if err != nil {
			return nil, err
		}
		if id.Class() != class {
			return nil, fmt.Errorf("experiment %s is not of class %s", id, class)
		}
		valid, err := s.experiments.IsValid(ctx, id)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, fmt.Errorf("not a valid experiment: %s", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// defaultRunKey derives the run key of the configured branch head.
func (s *BatchServiceImpl) defaultRunKey(ctx context.Context, opts primary.RunOptions) (models.RunKey, error) {
	branch := opts.Branch
	if branch == "" {
		branch = DefaultBranch
	}
	board := opts.BoardType
	if board == "" {
		board = SupportedBoard
	}
	rev, err := s.board.BranchRevision(ctx, branch)
	if err != nil {
		return "", err
	}
	return models.NewRunKey(rev, board), nil
}

func sliceSeq(ids []models.ExperimentID) iter.Seq2[models.ExperimentID, error] {
	return func(yield func(models.ExperimentID, error) bool) {
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

// Summarize counts the succeeded and failed items of a batch.
func Summarize(items []primary.ItemResult) primary.BatchSummary {
	summary := primary.BatchSummary{Items: items}
	for _, item := range items {
		if item.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// ParseIDList reads experiment ids one per line, skipping blank lines and
// lines starting with #.
func ParseIDList(text string) []string {
	var ids []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	return ids
}

// Ensure BatchServiceImpl implements the interface
var _ primary.BatchService = (*BatchServiceImpl)(nil)
