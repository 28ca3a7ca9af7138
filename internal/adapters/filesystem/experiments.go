// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/ports/secondary"
)

// Files inside an experiment directory.
const (
	CodeHashFile = models.CodeHashFile
	CodeFile     = "code.asm"
	progsDir     = "progs"
	listsDir     = "lists"
	genPrefix    = "gen."
)

// InputFile returns the name of input file n (1-based).
func InputFile(n int) string {
	return models.InputFile(n)
}

// ExperimentRepository implements secondary.ExperimentRepository over the
// experiment tree <root>/<arch>/<type>/<params>/<hash>. Programs live in
// <root>/<arch>/progs/<code hash>/code.asm.
type ExperimentRepository struct {
	root string
}

// NewExperimentRepository creates a repository rooted at root, which must be a directory.
func NewExperimentRepository(root string) (*ExperimentRepository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve experiment root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open experiment root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("experiment root %s is not a directory", abs)
	}
	return &ExperimentRepository{root: abs}, nil
}

// Root returns the root directory of the experiment tree.
func (r *ExperimentRepository) Root() string {
	return r.root
}

// Path returns the directory of an experiment.
func (r *ExperimentRepository) Path(id models.ExperimentID) string {
	return filepath.Join(r.root, id.Arch, string(id.Type), id.Params, id.Hash)
}

// RunPath returns the run directory of an experiment for runKey.
func (r *ExperimentRepository) RunPath(id models.ExperimentID, runKey models.RunKey) string {
	return filepath.Join(r.Path(id), runKey.Dir())
}

func (r *ExperimentRepository) classPath(class models.ExperimentClass) string {
	return filepath.Join(r.root, class.Arch, string(class.Type), class.Params)
}

func (r *ExperimentRepository) programPath(arch, programID string) string {
	return filepath.Join(r.root, arch, progsDir, programID, CodeFile)
}

// Exists reports whether the experiment directory exists.
func (r *ExperimentRepository) Exists(ctx context.Context, id models.ExperimentID) (bool, error) {
	return isDir(r.Path(id))
}

// IsValid reports whether code.hash, the declared inputs and the referenced
// program are all present.
func (r *ExperimentRepository) IsValid(ctx context.Context, id models.ExperimentID) (bool, error) {
	dir := r.Path(id)
	names := []string{CodeHashFile}
	for n := 1; n <= id.Type.InputCount(); n++ {
		names = append(names, InputFile(n))
	}
	for _, name := range names {
		ok, err := isFile(filepath.Join(dir, name))
		if err != nil || !ok {
			return false, err
		}
	}
	programID, err := r.ProgramID(ctx, id)
	if err != nil {
		return false, err
	}
	if programID == "" {
		return false, nil
	}
	return isFile(r.programPath(id.Arch, programID))
}

// IsIncomplete reports whether the transcript or the result is missing for runKey.
func (r *ExperimentRepository) IsIncomplete(ctx context.Context, id models.ExperimentID, runKey models.RunKey) (bool, error) {
	for _, name := range []string{models.OutputTranscript, models.OutputResult} {
		ok, err := isFile(filepath.Join(r.RunPath(id, runKey), name))
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
	}
	return false, nil
}

// ListClass returns the valid experiments of a class, sorted by hash.
func (r *ExperimentRepository) ListClass(ctx context.Context, class models.ExperimentClass) ([]models.ExperimentID, error) {
	entries, err := os.ReadDir(r.classPath(class))
	if err != nil {
		return nil, fmt.Errorf("not a directory in logs: %s: %w", class, err)
	}
	var ids []models.ExperimentID
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := class.Experiment(e.Name())
		ok, err := r.IsValid(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check experiment %s: %w", id, err)
		}
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListIncomplete returns the valid experiments of a class that lack results for runKey.
func (r *ExperimentRepository) ListIncomplete(ctx context.Context, class models.ExperimentClass, runKey models.RunKey) ([]models.ExperimentID, error) {
	all, err := r.ListClass(ctx, class)
	if err != nil {
		return nil, err
	}
	var ids []models.ExperimentID
	for _, id := range all {
		incomplete, err := r.IsIncomplete(ctx, id, runKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check experiment %s: %w", id, err)
		}
		if incomplete {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListArch returns every valid experiment of an architecture, ordered by id.
func (r *ExperimentRepository) ListArch(ctx context.Context, arch string) ([]models.ExperimentID, error) {
	archDir := filepath.Join(r.root, arch)
	types, err := os.ReadDir(archDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read architecture %s: %w", arch, err)
	}
	var ids []models.ExperimentID
	for _, t := range types {
		typ := models.ExperimentType(t.Name())
		if !t.IsDir() || !typ.Valid() {
			continue
		}
		params, err := os.ReadDir(filepath.Join(archDir, t.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", t.Name(), err)
		}
		for _, p := range params {
			if !p.IsDir() {
				continue
			}
			classIDs, err := r.ListClass(ctx, models.ExperimentClass{Arch: arch, Type: typ, Params: p.Name()})
			if err != nil {
				return nil, err
			}
			ids = append(ids, classIDs...)
		}
	}
	return ids, nil
}

// ListPrograms returns the names of the program directories of arch.
func (r *ExperimentRepository) ListPrograms(ctx context.Context, arch string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, arch, progsDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read programs of %s: %w", arch, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ListEntries returns every entry of a class directory.
func (r *ExperimentRepository) ListEntries(ctx context.Context, class models.ExperimentClass) ([]secondary.ClassEntry, error) {
	dir := r.classPath(class)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("not a directory in logs: %s: %w", class, err)
	}
	out := make([]secondary.ClassEntry, 0, len(entries))
	for _, e := range entries {
		entry := secondary.ClassEntry{Name: e.Name(), IsDir: e.IsDir()}
		if e.IsDir() {
			files, err := os.ReadDir(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
			}
			entry.HasFiles = slices.ContainsFunc(files, func(f os.DirEntry) bool { return f.Type().IsRegular() })
		}
		out = append(out, entry)
	}
	return out, nil
}

// ProgramID returns the trimmed content of code.hash.
func (r *ExperimentRepository) ProgramID(ctx context.Context, id models.ExperimentID) (string, error) {
	data, err := r.RawFile(ctx, id, CodeHashFile)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Code returns the program source referenced by code.hash.
func (r *ExperimentRepository) Code(ctx context.Context, id models.ExperimentID) (string, error) {
	programID, err := r.ProgramID(ctx, id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(r.programPath(id.Arch, programID))
	if err != nil {
		return "", fmt.Errorf("failed to read program %s: %w", programID, err)
	}
	return string(data), nil
}

// Input decodes input file n of an experiment.
func (r *ExperimentRepository) Input(ctx context.Context, id models.ExperimentID, n int) (models.StateMap, error) {
	data, err := r.RawFile(ctx, id, InputFile(n))
	if err != nil {
		return models.StateMap{}, err
	}
	state, err := models.DecodeStateJSON(data)
	if err != nil {
		return models.StateMap{}, fmt.Errorf("%s of %s: %w", InputFile(n), id, err)
	}
	return state, nil
}

// RawFile reads a file of the experiment directory.
func (r *ExperimentRepository) RawFile(ctx context.Context, id models.ExperimentID, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(r.Path(id), name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s of %s: %w", name, id, err)
	}
	return data, nil
}

// GenFiles returns the generation info files of an experiment.
func (r *ExperimentRepository) GenFiles(ctx context.Context, id models.ExperimentID) ([]string, error) {
	entries, err := os.ReadDir(r.Path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment %s: %w", id, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), genPrefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// RunKeys returns the run keys an experiment has run directories for.
func (r *ExperimentRepository) RunKeys(ctx context.Context, id models.ExperimentID) ([]models.RunKey, error) {
	entries, err := os.ReadDir(r.Path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment %s: %w", id, err)
	}
	var keys []models.RunKey
	for _, e := range entries {
		if key, ok := strings.CutPrefix(e.Name(), models.RunDirPrefix); ok && e.IsDir() {
			keys = append(keys, models.RunKey(key))
		}
	}
	return keys, nil
}

// Result returns the stored result blob for runKey.
func (r *ExperimentRepository) Result(ctx context.Context, id models.ExperimentID, runKey models.RunKey) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.RunPath(id, runKey), models.OutputResult))
	if err != nil {
		return nil, fmt.Errorf("failed to read result of %s: %w", id, err)
	}
	return data, nil
}

// Create creates the experiment directory and writes files into it. It fails
// if the experiment directory already exists.
func (r *ExperimentRepository) Create(ctx context.Context, id models.ExperimentID, files []models.Output) error {
	dir := r.Path(id)
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return fmt.Errorf("failed to create class directory: %w", err)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return fmt.Errorf("failed to create experiment %s: %w", id, err)
	}
	for _, f := range files {
		if err := checkName(f.Name); err != nil {
			return err
		}
		fh, err := os.OpenFile(filepath.Join(dir, f.Name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.Name, err)
		}
		_, werr := fh.Write(f.Data)
		if cerr := fh.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, werr)
		}
	}
	return nil
}

// Remove deletes an experiment directory and everything in it.
func (r *ExperimentRepository) Remove(ctx context.Context, id models.ExperimentID) error {
	if err := os.RemoveAll(r.Path(id)); err != nil {
		return fmt.Errorf("failed to remove experiment %s: %w", id, err)
	}
	return nil
}

// ListPath returns the path of list file i for name.
func (r *ExperimentRepository) ListPath(name string, i int) string {
	return filepath.Join(r.root, listsDir, fmt.Sprintf("exps_%s_%d.txt", name, i))
}

// WriteLists writes one list file per entry of lists, refusing to overwrite.
func (r *ExperimentRepository) WriteLists(ctx context.Context, name string, lists [][]models.ExperimentID) ([]string, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	paths := make([]string, len(lists))
	for i := range lists {
		paths[i] = r.ListPath(name, i)
		exists, err := isFile(paths[i])
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("list file %s exists already", paths[i])
		}
	}
	if err := os.MkdirAll(filepath.Join(r.root, listsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lists directory: %w", err)
	}
	for i, ids := range lists {
		var b strings.Builder
		for _, id := range ids {
			b.WriteString(id.String())
			b.WriteByte('\n')
		}
		if err := os.WriteFile(paths[i], []byte(b.String()), 0644); err != nil {
			return nil, fmt.Errorf("failed to write list %d: %w", i, err)
		}
	}
	return paths, nil
}

// checkName rejects names that would leave the directory they are joined to.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}
	return info.IsDir(), nil
}

// Ensure ExperimentRepository implements the interface
var _ secondary.ExperimentRepository = (*ExperimentRepository)(nil)
