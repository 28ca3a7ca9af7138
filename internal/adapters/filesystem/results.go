package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/ports/secondary"
)

// ResultStore implements secondary.ResultStore. Artifacts are written once;
// a later run producing different bytes is reported instead of overwriting.
type ResultStore struct {
	experiments *ExperimentRepository
	errOut      io.Writer
	logger      *slog.Logger
}

// NewResultStore creates a store writing below the experiments of repo.
// Mismatch reports go to errOut.
func NewResultStore(repo *ExperimentRepository, errOut io.Writer, logger *slog.Logger) *ResultStore {
	return &ResultStore{experiments: repo, errOut: errOut, logger: logger}
}

// CompareFile reports whether the file at path is absent or holds exactly data.
// On a mismatch a report with the proposed content is written to w.
func CompareFile(path string, data []byte, w io.Writer) (bool, error) {
	existing, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if bytes.Equal(existing, data) {
		return true, nil
	}
	frame := strings.Repeat("=", 40)
	var report bytes.Buffer
	fmt.Fprintln(&report, frame)
	fmt.Fprintf(&report, "file doesn't match: %s\n", path)
	fmt.Fprintln(&report, strings.Repeat("-", 40))
	report.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		report.WriteByte('\n')
	}
	fmt.Fprintln(&report, frame)
	if _, err := w.Write(report.Bytes()); err != nil {
		return false, fmt.Errorf("failed to report mismatch for %s: %w", path, err)
	}
	return false, nil
}

// WriteResults stores outputs in the run directory of id for runKey.
func (s *ResultStore) WriteResults(ctx context.Context, runKey models.RunKey, id models.ExperimentID, outputs []models.Output, force bool) (bool, error) {
	seen := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		if err := checkName(out.Name); err != nil {
			return false, err
		}
		if seen[out.Name] {
			return false, fmt.Errorf("duplicate output %q", out.Name)
		}
		seen[out.Name] = true
	}

	ok, err := isDir(s.experiments.Path(id))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("experiment %s does not exist", id)
	}

	runDir := s.experiments.RunPath(id, runKey)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create run directory: %w", err)
	}

	noMismatch := true
	for _, out := range outputs {
		path := filepath.Join(runDir, out.Name)
		same, err := CompareFile(path, out.Data, s.errOut)
		if err != nil {
			return false, err
		}
		if !same {
			s.logger.Warn("stored output differs", "experiment", id.String(), "run_key", string(runKey), "file", out.Name)
		}
		noMismatch = noMismatch && same
	}
	if !noMismatch && !force {
		return false, nil
	}

	for _, out := range outputs {
		path := filepath.Join(runDir, out.Name)
		if !force {
			exists, err := isFile(path)
			if err != nil {
				return false, err
			}
			if exists {
				continue
			}
		}
		if err := os.WriteFile(path, out.Data, 0644); err != nil {
			return false, fmt.Errorf("failed to write %s: %w", out.Name, err)
		}
	}
	if force && !noMismatch {
		s.logger.Warn("overwrote differing outputs", "experiment", id.String(), "run_key", string(runKey))
	}
	return noMismatch, nil
}

// Ensure ResultStore implements the interface
var _ secondary.ResultStore = (*ResultStore)(nil)
