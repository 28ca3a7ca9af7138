package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidID is returned for experiment ids and classes that do not have
// the expected number of path segments or name an unknown experiment type.
var ErrInvalidID = errors.New("invalid experiment id")

// ExperimentType distinguishes single-run from paired-run experiments.
type ExperimentType string

const (
	// TypeSingle captures one cache snapshot per run.
	TypeSingle ExperimentType = "exps1"
	// TypePair compares the cache state produced by two inputs.
	TypePair ExperimentType = "exps2"
)

// Valid reports whether t is one of the known experiment types.
func (t ExperimentType) Valid() bool {
	return t == TypeSingle || t == TypePair
}

// InputCount is the number of declared input states an experiment of this type carries.
func (t ExperimentType) InputCount() int {
	if t == TypePair {
		return 2
	}
	return 1
}

// ExperimentClass addresses a set of experiments sharing arch, type and parameter set
// (e.g. arm8/exps2/exp_cache_multiw).
type ExperimentClass struct {
	Arch   string
	Type   ExperimentType
	Params string
}

// ParseExperimentClass parses a 3-segment class path.
func ParseExperimentClass(s string) (ExperimentClass, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 3 {
		return ExperimentClass{}, fmt.Errorf("%w: class %q must have 3 segments", ErrInvalidID, s)
	}
	for _, p := range parts {
		if p == "" {
			return ExperimentClass{}, fmt.Errorf("%w: class %q has an empty segment", ErrInvalidID, s)
		}
	}
	typ := ExperimentType(parts[1])
	if !typ.Valid() {
		return ExperimentClass{}, fmt.Errorf("%w: unknown experiment type %q", ErrInvalidID, parts[1])
	}
	return ExperimentClass{Arch: parts[0], Type: typ, Params: parts[2]}, nil
}

func (c ExperimentClass) String() string {
	return c.Arch + "/" + string(c.Type) + "/" + c.Params
}

// Experiment returns the id of the experiment named hash within this class.
func (c ExperimentClass) Experiment(hash string) ExperimentID {
	return ExperimentID{Arch: c.Arch, Type: c.Type, Params: c.Params, Hash: hash}
}

// ExperimentID is the 4-segment address arch/type/params/hash of one experiment.
type ExperimentID struct {
	Arch   string
	Type   ExperimentType
	Params string
	Hash   string
}

// ParseExperimentID parses a 4-segment experiment id.
func ParseExperimentID(s string) (ExperimentID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 4 {
		return ExperimentID{}, fmt.Errorf("%w: %q must have 4 segments", ErrInvalidID, s)
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return ExperimentID{}, fmt.Errorf("%w: %q has an empty or relative segment", ErrInvalidID, s)
		}
	}
	typ := ExperimentType(parts[1])
	if !typ.Valid() {
		return ExperimentID{}, fmt.Errorf("%w: unknown experiment type %q", ErrInvalidID, parts[1])
	}
	return ExperimentID{Arch: parts[0], Type: typ, Params: parts[2], Hash: parts[3]}, nil
}

func (id ExperimentID) String() string {
	return id.Arch + "/" + string(id.Type) + "/" + id.Params + "/" + id.Hash
}

// Class returns the experiment class this id belongs to.
func (id ExperimentID) Class() ExperimentClass {
	return ExperimentClass{Arch: id.Arch, Type: id.Type, Params: id.Params}
}

// Segments returns the path segments of the id, in order.
func (id ExperimentID) Segments() []string {
	return []string{id.Arch, string(id.Type), id.Params, id.Hash}
}

// RunKey namespaces the outputs of one (platform revision, board type) pair.
type RunKey string

// NewRunKey builds the run key "<revision>.<board>".
func NewRunKey(revision, boardType string) RunKey {
	return RunKey(revision + "." + boardType)
}

// Dir is the name of the run directory inside an experiment directory.
func (k RunKey) Dir() string {
	return "run." + string(k)
}

// RunDirPrefix prefixes every run directory name.
const RunDirPrefix = "run."

// Artifact names stored per (experiment, run key).
const (
	OutputTranscript = "output_uart.log"
	OutputResult     = "result.json"
)

// Output is one named artifact proposed for storage.
type Output struct {
	Name string
	Data []byte
}

// CodeHashFile holds the program id an experiment refers to.
const CodeHashFile = "code.hash"

// InputFile returns the name of input file n (1-based).
func InputFile(n int) string {
	return "input" + strconv.Itoa(n) + ".json"
}
