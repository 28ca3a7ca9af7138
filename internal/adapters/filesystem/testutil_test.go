package filesystem_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/embexp/internal/adapters/filesystem"
	"github.com/example/embexp/internal/models"
)

const testProgram = "\tnop\n"

// writeExperiment lays out a valid experiment of id below root.
func writeExperiment(t *testing.T, root string, id models.ExperimentID) {
	t.Helper()
	dir := filepath.Join(root, id.Arch, string(id.Type), id.Params, id.Hash)
	files := map[string]string{filesystem.CodeHashFile: "prog1\n"}
	for n := 1; n <= id.Type.InputCount(); n++ {
		files[filesystem.InputFile(n)] = `{"x0": 1, "mem": {"2147483656": 7}}`
	}
	for name, content := range files {
		writeFile(t, filepath.Join(dir, name), content)
	}
	writeFile(t, filepath.Join(root, id.Arch, "progs", "prog1", filesystem.CodeFile), testProgram)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func newRepo(t *testing.T) (*filesystem.ExperimentRepository, string) {
	t.Helper()
	root := t.TempDir()
	repo, err := filesystem.NewExperimentRepository(root)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo, repo.Root()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
