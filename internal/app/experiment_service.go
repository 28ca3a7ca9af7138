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

// ExperimentServiceImpl implements the ExperimentService interface.
type ExperimentServiceImpl struct {
	experiments secondary.ExperimentRepository
	logger      *slog.Logger
}

// NewExperimentService creates a new ExperimentService with injected dependencies.
func NewExperimentService(experiments secondary.ExperimentRepository, logger *slog.Logger) *ExperimentServiceImpl {
	return &ExperimentServiceImpl{experiments: experiments, logger: logger}
}

// ShowExperiment gathers generation info, runs, program and inputs of an experiment.
func (s *ExperimentServiceImpl) ShowExperiment(ctx context.Context, experimentID string) (*primary.ExperimentDetails, error) {
	id, err := models.ParseExperimentID(experimentID)
	if err != nil {
		return nil, err
	}
	exists, err := s.experiments.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("experiment %s not found", id)
	}

	details := &primary.ExperimentDetails{ID: id.String()}
	if details.GenFiles, err = s.experiments.GenFiles(ctx, id); err != nil {
		return nil, err
	}

	keys, err := s.experiments.RunKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		run := primary.RunResult{RunKey: string(key)}
		result, err := s.experiments.Result(ctx, id, key)
		if err == nil {
			run.Result = string(result)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		details.Runs = append(details.Runs, run)
	}

	if details.ProgramID, err = s.experiments.ProgramID(ctx, id); err != nil {
		return nil, err
	}
	if details.Code, err = s.experiments.Code(ctx, id); err != nil {
		return nil, err
	}
	for n := 1; n <= id.Type.InputCount(); n++ {
		input, err := s.experiments.Input(ctx, id, n)
		if err != nil {
			return nil, err
		}
		details.Inputs = append(details.Inputs, input.Readable())
	}
	return details, nil
}

// ExtractExperiment copies the program reference and one input of a pair
// experiment into a new single-run experiment of the same parameter set.
func (s *ExperimentServiceImpl) ExtractExperiment(ctx context.Context, req primary.ExtractRequest) (*primary.ExtractResponse, error) {
	id, err := models.ParseExperimentID(req.ExperimentID)
	if err != nil {
		return nil, err
	}
	if id.Type != models.TypePair {
		return nil, fmt.Errorf("%w: can only extract from %s experiments", ErrUnsupported, models.TypePair)
	}
	if req.InputIndex < 1 || req.InputIndex > id.Type.InputCount() {
		return nil, fmt.Errorf("input index must be 1 or 2, got %d", req.InputIndex)
	}
	newID := models.ExperimentClass{Arch: id.Arch, Type: models.TypeSingle, Params: id.Params}.Experiment(req.NewName)
	if _, err := models.ParseExperimentID(newID.String()); err != nil {
		return nil, err
	}

	codeHash, err := s.experiments.RawFile(ctx, id, models.CodeHashFile)
	if err != nil {
		return nil, err
	}
	input, err := s.experiments.RawFile(ctx, id, models.InputFile(req.InputIndex))
	if err != nil {
		return nil, err
	}
	files := []models.Output{
		{Name: models.CodeHashFile, Data: codeHash},
		{Name: models.InputFile(1), Data: input},
	}
	if err := s.experiments.Create(ctx, newID, files); err != nil {
		return nil, err
	}
	s.logger.Info("extracted experiment", "from", id.String(), "input", req.InputIndex, "to", newID.String())
	return &primary.ExtractResponse{NewExperimentID: newID.String()}, nil
}

// SplitLists distributes the non-empty experiment directories of a class
// round-robin over NumLists list files.
func (s *ExperimentServiceImpl) SplitLists(ctx context.Context, req primary.SplitListsRequest) (*primary.SplitListsResponse, error) {
	class, err := models.ParseExperimentClass(req.Class)
	if err != nil {
		return nil, err
	}
	if req.NumLists < 1 {
		return nil, fmt.Errorf("number of lists must be positive, got %d", req.NumLists)
	}
	entries, err := s.experiments.ListEntries(ctx, class)
	if err != nil {
		return nil, err
	}

	resp := &primary.SplitListsResponse{}
	lists := make([][]models.ExperimentID, req.NumLists)
	i := 0
	for _, e := range entries {
		if !e.IsDir {
			resp.Warnings = append(resp.Warnings, "not a directory: "+e.Name)
			continue
		}
		if !e.HasFiles {
			resp.Warnings = append(resp.Warnings, "empty directory (no files): "+e.Name)
			continue
		}
		lists[i] = append(lists[i], class.Experiment(e.Name))
		i = (i + 1) % req.NumLists
	}

	paths, err := s.experiments.WriteLists(ctx, req.Name, lists)
	if err != nil {
		return nil, err
	}
	resp.Paths = paths
	for _, l := range lists {
		resp.Lengths = append(resp.Lengths, len(l))
	}
	return resp, nil
}

// RemoveExperiment deletes an existing experiment.
func (s *ExperimentServiceImpl) RemoveExperiment(ctx context.Context, experimentID string) error {
	id, err := models.ParseExperimentID(experimentID)
	if err != nil {
		return err
	}
	exists, err := s.experiments.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("experiment %s not found", id)
	}
	s.logger.Info("removing experiment", "experiment", id.String())
	return s.experiments.Remove(ctx, id)
}

// ValidateIDs checks that every id parses and names a valid experiment.
func (s *ExperimentServiceImpl) ValidateIDs(ctx context.Context, ids []string) error {
	for _, raw := range ids {
		id, err := models.ParseExperimentID(raw)
		if err != nil {
			return err
		}
		valid, err := s.experiments.IsValid(ctx, id)
		if err != nil {
			return err
		}
		if !valid {
			return fmt.Errorf("not a valid experiment: %s", id)
		}
	}
	return nil
}

// Ensure ExperimentServiceImpl implements the interface
var _ primary.ExperimentService = (*ExperimentServiceImpl)(nil)
