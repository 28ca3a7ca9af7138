// Package transcript decodes the text a board prints while running an
// experiment into a structured outcome.
package transcript

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/example/embexp/internal/models"
)

// ErrGrammar marks every structural violation of a transcript. A transcript
// that fails with ErrGrammar has no outcome; it is never coerced into one.
var ErrGrammar = errors.New("unexpected output")

// Markers printed by the board firmware.
const (
	InitComplete       = "Init complete."
	ExperimentComplete = "Experiment complete."
	ExceptionPrefix    = "EXCEPTION: "
	InconclusivePrefix = "INCONCLUSIVE: "

	ResultEqual   = "RESULT: EQUAL"
	ResultUnequal = "RESULT: UNEQUAL"

	Separator     = "----"
	FuncCacheFull = "print_cache_full"
	FuncCacheSimp = "print_cache_valid"
)

// Upper bounds for cache indices in a valid-only dump. Indices at or above them
// are grammar errors.
const (
	MaxCacheSets  = 1 << 16
	MaxCacheLines = 1 << 8
)

func grammarError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGrammar, fmt.Sprintf(format, args...))
}

// SplitLines splits raw board output into lines.
func SplitLines(raw []byte) []string {
	return strings.Split(string(raw), "\n")
}

// CheckBase validates the init and completion markers and returns the lines
// between them. If the board reported an exception right after init, exc is
// set and no further lines are looked at.
func CheckBase(lines []string) (interior []string, exc *models.BoardException, err error) {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 1 || lines[0] != InitComplete {
		first := ""
		if len(lines) > 0 {
			first = lines[0]
		}
		return nil, nil, grammarError("init has never been completed, first line is: %q", first)
	}
	if len(lines) < 2 {
		return nil, nil, grammarError("only the init line present")
	}
	if msg, ok := strings.CutPrefix(lines[1], ExceptionPrefix); ok {
		return nil, &models.BoardException{Message: msg}, nil
	}
	if lines[len(lines)-1] != ExperimentComplete {
		return nil, nil, grammarError("experiment is never completed")
	}
	return lines[1 : len(lines)-1], nil, nil
}

// DecodePair interprets the interior lines of a pair experiment.
func DecodePair(interior []string) (models.Outcome, error) {
	if len(interior) < 1 {
		return nil, grammarError("missing result line")
	}
	line := interior[0]
	switch {
	case line == ResultEqual:
		return models.PairResult{Equal: true}, nil
	case line == ResultUnequal:
		return models.PairResult{Equal: false}, nil
	case strings.HasPrefix(line, InconclusivePrefix):
		return models.Inconclusive{Message: line}, nil
	default:
		return nil, grammarError("the result line is not as expected: %q", line)
	}
}

// DecodeSingle interprets the interior lines of a single-run experiment:
//
//	----
//	print_cache_full | print_cache_valid
//	----
//	<body>
//	[INCONCLUSIVE: ...]
//	----
//
// The grammar of the body is chosen by the function line only.
func DecodeSingle(interior []string) (models.CacheSnapshot, error) {
	lines := interior
	if len(lines) < 3 {
		return models.CacheSnapshot{}, grammarError("cache dump header is incomplete")
	}
	if lines[0] != Separator {
		return models.CacheSnapshot{}, grammarError("expected %q before the function line, got %q", Separator, lines[0])
	}
	fn := lines[1]
	if fn != FuncCacheFull && fn != FuncCacheSimp {
		return models.CacheSnapshot{}, grammarError("unknown cache dump function %q", fn)
	}
	if lines[2] != Separator {
		return models.CacheSnapshot{}, grammarError("expected %q after the function line, got %q", Separator, lines[2])
	}
	lines = lines[3:]

	var note string
	if len(lines) >= 1 && strings.HasPrefix(lines[len(lines)-1], InconclusivePrefix) {
		note = lines[len(lines)-1]
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 1 || lines[len(lines)-1] != Separator {
		return models.CacheSnapshot{}, grammarError("cache dump is not closed by %q", Separator)
	}
	body := lines[:len(lines)-1]

	var (
		sets []models.CacheSet
		err  error
	)
	if fn == FuncCacheFull {
		sets, err = parseFull(body)
	} else {
		sets, err = parseValidOnly(body)
	}
	if err != nil {
		return models.CacheSnapshot{}, err
	}
	return models.CacheSnapshot{Sets: sets, Note: note}, nil
}

// parseFull reads
//
//	set=0
//	line=0
//	valid:1
//	tag:abc
//	line=1
//	...
//	set=1
//
// Set and line indices count up from 0 without gaps.
func parseFull(body []string) ([]models.CacheSet, error) {
	sets := []models.CacheSet{}
	for len(body) > 0 {
		s := len(sets)
		if body[0] != fmt.Sprintf("set=%d", s) {
			return nil, grammarError("expected set=%d, got %q", s, body[0])
		}
		body = body[1:]
		set := models.CacheSet{Index: s, Lines: []models.CacheLine{}}

		for len(body) > 0 && !strings.HasPrefix(body[0], "set") {
			l := len(set.Lines)
			if body[0] != fmt.Sprintf("line=%d", l) {
				return nil, grammarError("expected line=%d in set %d, got %q", l, s, body[0])
			}
			body = body[1:]

			line := models.CacheLine{Line: l}
			seen := map[string]bool{}
			for len(body) > 0 && !strings.HasPrefix(body[0], "set") && !strings.HasPrefix(body[0], "line") {
				name, value, err := splitField(body[0])
				if err != nil {
					return nil, err
				}
				body = body[1:]
				if seen[name] {
					return nil, grammarError("duplicate field %q in set %d line %d", name, s, l)
				}
				seen[name] = true
				if err := setField(&line, name, value); err != nil {
					return nil, err
				}
			}
			if !seen["valid"] {
				return nil, grammarError("set %d line %d has no valid field", s, l)
			}
			set.Lines = append(set.Lines, line)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// parseValidOnly reads lines of the form "<set> :: <line> :: <field>: <value>".
// Only valid lines are printed, so every parsed line is valid. Sets without a
// printed line are filled in up to the highest set index.
func parseValidOnly(body []string) ([]models.CacheSet, error) {
	type entry struct {
		set  int
		line models.CacheLine
	}
	entries := make([]entry, 0, len(body))
	numSets := 0
	for _, raw := range body {
		parts := strings.Split(raw, "::")
		if len(parts) != 3 {
			return nil, grammarError("malformed cache line %q", raw)
		}
		s, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || s < 0 || s >= MaxCacheSets {
			return nil, grammarError("invalid set index in %q", raw)
		}
		l, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || l < 0 || l >= MaxCacheLines {
			return nil, grammarError("invalid line index in %q", raw)
		}
		name, value, err := splitField(parts[2])
		if err != nil {
			return nil, err
		}
		line := models.CacheLine{Line: l, Valid: true}
		if name == "valid" {
			return nil, grammarError("unexpected valid field in %q", raw)
		}
		if err := setField(&line, name, value); err != nil {
			return nil, err
		}
		entries = append(entries, entry{set: s, line: line})
		numSets = max(numSets, s+1)
	}

	sets := make([]models.CacheSet, numSets)
	for i := range sets {
		sets[i] = models.CacheSet{Index: i, Lines: []models.CacheLine{}}
	}
	for _, e := range entries {
		sets[e.set].Lines = append(sets[e.set].Lines, e.line)
	}
	return sets, nil
}

// splitField splits "name:value", trimming both sides. The value ends at the
// next colon.
func splitField(raw string) (string, string, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return "", "", grammarError("expected field:value, got %q", raw)
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return "", "", grammarError("empty field name in %q", raw)
	}
	return name, strings.TrimSpace(parts[1]), nil
}

func setField(line *models.CacheLine, name, value string) error {
	switch name {
	case "valid":
		switch value {
		case "0":
			line.Valid = false
		case "1":
			line.Valid = true
		default:
			return grammarError("valid must be 0 or 1, got %q", value)
		}
	case "tag":
		line.Tag = value
		line.HasTag = true
	default:
		line.Extra = append(line.Extra, models.Field{Name: name, Value: value})
	}
	return nil
}

// Clean keeps only the sets that have at least one valid line, keeps only the
// valid lines of those sets, and strips every line down to line, valid and tag.
func Clean(sets []models.CacheSet) []models.CacheSet {
	out := []models.CacheSet{}
	for _, set := range sets {
		var lines []models.CacheLine
		for _, line := range set.Lines {
			if line.Valid {
				lines = append(lines, models.CacheLine{Line: line.Line, Valid: true, Tag: line.Tag, HasTag: line.HasTag})
			}
		}
		if len(lines) == 0 {
			continue
		}
		out = append(out, models.CacheSet{Index: set.Index, Lines: lines})
	}
	return out
}

// Decoder decodes transcripts and logs the special results it encounters.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a Decoder logging to logger.
func NewDecoder(logger *slog.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Decode turns the raw output of a run into an outcome. Board exceptions are
// outcomes, not errors. Single-run snapshots are returned as printed; callers
// apply Clean before storing them.
func (d *Decoder) Decode(typ models.ExperimentType, raw []byte) (models.Outcome, error) {
	interior, exc, err := CheckBase(SplitLines(raw))
	if err != nil {
		return nil, err
	}
	if exc != nil {
		d.logger.Warn("board exception", "message", exc.Message)
		return *exc, nil
	}

	switch typ {
	case models.TypePair:
		outcome, err := DecodePair(interior)
		if err != nil {
			return nil, err
		}
		if inc, ok := outcome.(models.Inconclusive); ok {
			d.logger.Error("special result", "line", inc.Message)
		}
		return outcome, nil
	case models.TypeSingle:
		snap, err := DecodeSingle(interior)
		if err != nil {
			return nil, err
		}
		if snap.Note != "" {
			d.logger.Error("special result", "line", snap.Note)
		}
		return snap, nil
	default:
		return nil, fmt.Errorf("unknown experiment type: %s", typ)
	}
}
