package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockExperiment is one experiment held by mockExperimentRepository.
type mockExperiment struct {
	invalid   bool
	programID string
	code      string
	inputs    []models.StateMap
	raw       map[string][]byte
	genFiles  []string
	// results maps run keys to result blobs; a nil blob is an incomplete run.
	results map[models.RunKey][]byte
}

// mockExperimentRepository implements secondary.ExperimentRepository in memory.
type mockExperimentRepository struct {
	experiments map[string]*mockExperiment
	programs    map[string][]string
	entries     []secondary.ClassEntry
	lists       [][]models.ExperimentID
	listsErr    error
	createErr   error
	created     map[string][]models.Output
	removed     []string
}

func newMockExperimentRepository() *mockExperimentRepository {
	return &mockExperimentRepository{
		experiments: make(map[string]*mockExperiment),
		programs:    make(map[string][]string),
		created:     make(map[string][]models.Output),
	}
}

// add registers a valid experiment with one input per declared input file.
func (m *mockExperimentRepository) add(raw string) *mockExperiment {
	id, err := models.ParseExperimentID(raw)
	if err != nil {
		panic(err)
	}
	exp := &mockExperiment{
		programID: "prog1",
		code:      "\tnop",
		raw:       map[string][]byte{models.CodeHashFile: []byte("prog1\n")},
		results:   make(map[models.RunKey][]byte),
	}
	for n := 1; n <= id.Type.InputCount(); n++ {
		s := models.NewStateMap()
		s.Registers["x0"] = uint64(n)
		exp.inputs = append(exp.inputs, s)
		exp.raw[models.InputFile(n)] = []byte(fmt.Sprintf(`{"x0": %d}`, n))
	}
	m.experiments[raw] = exp
	return exp
}

func (m *mockExperimentRepository) get(id models.ExperimentID) (*mockExperiment, error) {
	exp, ok := m.experiments[id.String()]
	if !ok {
		return nil, fmt.Errorf("experiment %s: %w", id, os.ErrNotExist)
	}
	return exp, nil
}

func (m *mockExperimentRepository) sorted(match func(models.ExperimentID) bool) []models.ExperimentID {
	var ids []models.ExperimentID
	for raw, exp := range m.experiments {
		id, _ := models.ParseExperimentID(raw)
		if !exp.invalid && match(id) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b models.ExperimentID) int { return strings.Compare(a.String(), b.String()) })
	return ids
}

func (m *mockExperimentRepository) Exists(ctx context.Context, id models.ExperimentID) (bool, error) {
	_, ok := m.experiments[id.String()]
	return ok, nil
}

func (m *mockExperimentRepository) IsValid(ctx context.Context, id models.ExperimentID) (bool, error) {
	exp, ok := m.experiments[id.String()]
	return ok && !exp.invalid, nil
}

func (m *mockExperimentRepository) IsIncomplete(ctx context.Context, id models.ExperimentID, runKey models.RunKey) (bool, error) {
	exp, err := m.get(id)
	if err != nil {
		return false, err
	}
	return exp.results[runKey] == nil, nil
}

func (m *mockExperimentRepository) ListClass(ctx context.Context, class models.ExperimentClass) ([]models.ExperimentID, error) {
	return m.sorted(func(id models.ExperimentID) bool { return id.Class() == class }), nil
}

func (m *mockExperimentRepository) ListIncomplete(ctx context.Context, class models.ExperimentClass, runKey models.RunKey) ([]models.ExperimentID, error) {
	return m.sorted(func(id models.ExperimentID) bool {
		return id.Class() == class && m.experiments[id.String()].results[runKey] == nil
	}), nil
}

func (m *mockExperimentRepository) ListArch(ctx context.Context, arch string) ([]models.ExperimentID, error) {
	return m.sorted(func(id models.ExperimentID) bool { return id.Arch == arch }), nil
}

func (m *mockExperimentRepository) ListPrograms(ctx context.Context, arch string) ([]string, error) {
	return m.programs[arch], nil
}

func (m *mockExperimentRepository) ListEntries(ctx context.Context, class models.ExperimentClass) ([]secondary.ClassEntry, error) {
	return m.entries, nil
}

func (m *mockExperimentRepository) ProgramID(ctx context.Context, id models.ExperimentID) (string, error) {
	exp, err := m.get(id)
	if err != nil {
		return "", err
	}
	return exp.programID, nil
}

func (m *mockExperimentRepository) Code(ctx context.Context, id models.ExperimentID) (string, error) {
	exp, err := m.get(id)
	if err != nil {
		return "", err
	}
	return exp.code, nil
}

func (m *mockExperimentRepository) Input(ctx context.Context, id models.ExperimentID, n int) (models.StateMap, error) {
	exp, err := m.get(id)
	if err != nil {
		return models.StateMap{}, err
	}
	if n < 1 || n > len(exp.inputs) {
		return models.StateMap{}, fmt.Errorf("input %d: %w", n, os.ErrNotExist)
	}
	return exp.inputs[n-1], nil
}

func (m *mockExperimentRepository) RawFile(ctx context.Context, id models.ExperimentID, name string) ([]byte, error) {
	exp, err := m.get(id)
	if err != nil {
		return nil, err
	}
	data, ok := exp.raw[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return data, nil
}

func (m *mockExperimentRepository) GenFiles(ctx context.Context, id models.ExperimentID) ([]string, error) {
	exp, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return exp.genFiles, nil
}

func (m *mockExperimentRepository) RunKeys(ctx context.Context, id models.ExperimentID) ([]models.RunKey, error) {
	exp, err := m.get(id)
	if err != nil {
		return nil, err
	}
	var keys []models.RunKey
	for k := range exp.results {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *mockExperimentRepository) Result(ctx context.Context, id models.ExperimentID, runKey models.RunKey) ([]byte, error) {
	exp, err := m.get(id)
	if err != nil {
		return nil, err
	}
	data := exp.results[runKey]
	if data == nil {
		return nil, fmt.Errorf("result: %w", os.ErrNotExist)
	}
	return data, nil
}

func (m *mockExperimentRepository) Create(ctx context.Context, id models.ExperimentID, files []models.Output) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.experiments[id.String()]; ok {
		return errors.New("experiment already exists")
	}
	m.created[id.String()] = files
	return nil
}

func (m *mockExperimentRepository) Remove(ctx context.Context, id models.ExperimentID) error {
	m.removed = append(m.removed, id.String())
	delete(m.experiments, id.String())
	return nil
}

func (m *mockExperimentRepository) WriteLists(ctx context.Context, name string, lists [][]models.ExperimentID) ([]string, error) {
	if m.listsErr != nil {
		return nil, m.listsErr
	}
	m.lists = lists
	paths := make([]string, len(lists))
	for i := range lists {
		paths[i] = fmt.Sprintf("lists/exps_%s_%d.txt", name, i)
	}
	return paths, nil
}

func (m *mockExperimentRepository) Root() string { return "/logs" }

// mockResultStore implements secondary.ResultStore.
type mockResultStore struct {
	noMismatch bool
	err        error
	writes     []mockWrite
}

type mockWrite struct {
	runKey  models.RunKey
	id      models.ExperimentID
	outputs []models.Output
	force   bool
}

func newMockResultStore() *mockResultStore {
	return &mockResultStore{noMismatch: true}
}

func (m *mockResultStore) WriteResults(ctx context.Context, runKey models.RunKey, id models.ExperimentID, outputs []models.Output, force bool) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.writes = append(m.writes, mockWrite{runKey: runKey, id: id, outputs: outputs, force: force})
	return m.noMismatch, nil
}

// mockBoardDriver implements secondary.BoardDriver and records its calls.
type mockBoardDriver struct {
	calls        []string
	transcript   []byte
	revision     string
	branchRevs   map[string]string
	cleanErr     error
	configureErr error
	executeErr   error
	// onExecute, if set, runs during Execute.
	onExecute func()
	setups    []secondary.ExperimentSetup
}

func newMockBoardDriver() *mockBoardDriver {
	return &mockBoardDriver{
		revision:   "abc123",
		branchRevs: map[string]string{"master": "abc123"},
	}
}

func (m *mockBoardDriver) EnsureClean(ctx context.Context, force bool) error {
	m.calls = append(m.calls, fmt.Sprintf("clean:%t", force))
	if !force {
		return m.cleanErr
	}
	return nil
}

func (m *mockBoardDriver) ChangeBranch(ctx context.Context, branch string) error {
	m.calls = append(m.calls, "branch:"+branch)
	return nil
}

func (m *mockBoardDriver) Configure(ctx context.Context, boardType string, setup secondary.ExperimentSetup) error {
	m.calls = append(m.calls, "configure:"+boardType)
	m.setups = append(m.setups, setup)
	return m.configureErr
}

func (m *mockBoardDriver) Execute(ctx context.Context, mode secondary.ConnMode) ([]byte, error) {
	m.calls = append(m.calls, "execute:"+string(mode))
	if m.onExecute != nil {
		m.onExecute()
	}
	if m.executeErr != nil {
		return nil, m.executeErr
	}
	return m.transcript, nil
}

func (m *mockBoardDriver) CurrentRevision(ctx context.Context) (string, error) {
	return m.revision, nil
}

func (m *mockBoardDriver) BranchRevision(ctx context.Context, branch string) (string, error) {
	rev, ok := m.branchRevs[branch]
	if !ok {
		return "", fmt.Errorf("unknown branch %s", branch)
	}
	return rev, nil
}

// mockRunLedger implements secondary.RunLedger.
type mockRunLedger struct {
	records   []*secondary.RunRecord
	recordErr error
	listErr   error
	filters   secondary.RunFilters
}

func (m *mockRunLedger) Record(ctx context.Context, run *secondary.RunRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.records = append(m.records, run)
	return nil
}

func (m *mockRunLedger) List(ctx context.Context, filters secondary.RunFilters) ([]*secondary.RunRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.filters = filters
	return m.records, nil
}

func (m *mockRunLedger) GetNextID(ctx context.Context) (string, error) {
	return fmt.Sprintf("RUN-%04d", len(m.records)+1), nil
}

// mockRunService implements primary.RunService for batch tests.
type mockRunService struct {
	requests []primary.RunRequest
	fail     map[string]error
	// onRun, if set, runs for every request that does not fail.
	onRun func(id string)
}

func (m *mockRunService) RunExperiment(ctx context.Context, req primary.RunRequest) (*primary.RunReport, error) {
	m.requests = append(m.requests, req)
	if err := m.fail[req.ExperimentID]; err != nil {
		return nil, err
	}
	if m.onRun != nil {
		m.onRun(req.ExperimentID)
	}
	return &primary.RunReport{
		ExperimentID: req.ExperimentID,
		Outcome:      models.PairResult{Equal: true},
		Result:       "true",
		NoMismatch:   true,
		Written:      true,
	}, nil
}
