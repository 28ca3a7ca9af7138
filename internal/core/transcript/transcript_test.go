package transcript

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/example/embexp/internal/models"
)

func newTestDecoder() *Decoder {
	return NewDecoder(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func transcript(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestDecode_Pair(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  models.Outcome
	}{
		{
			name:  "equal",
			lines: []string{InitComplete, ResultEqual, ExperimentComplete},
			want:  models.PairResult{Equal: true},
		},
		{
			name:  "unequal",
			lines: []string{InitComplete, ResultUnequal, ExperimentComplete},
			want:  models.PairResult{Equal: false},
		},
		{
			name:  "inconclusive keeps the whole line",
			lines: []string{InitComplete, "INCONCLUSIVE: measurement noise", ExperimentComplete},
			want:  models.Inconclusive{Message: "INCONCLUSIVE: measurement noise"},
		},
		{
			name:  "board exception",
			lines: []string{InitComplete, "EXCEPTION: data abort", ExperimentComplete},
			want:  models.BoardException{Message: "data abort"},
		},
		{
			name:  "exception short-circuits trailing content",
			lines: []string{InitComplete, "EXCEPTION: bus fault", "anything else"},
			want:  models.BoardException{Message: "bus fault"},
		},
		{
			name:  "trailing empty lines are ignored",
			lines: []string{InitComplete, ResultEqual, ExperimentComplete, "", "", ""},
			want:  models.PairResult{Equal: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestDecoder().Decode(models.TypePair, transcript(tt.lines...))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecode_GrammarErrors(t *testing.T) {
	tests := []struct {
		name  string
		typ   models.ExperimentType
		lines []string
	}{
		{name: "empty transcript", typ: models.TypePair, lines: nil},
		{name: "missing init", typ: models.TypePair, lines: []string{ResultEqual, ExperimentComplete}},
		{name: "only init", typ: models.TypePair, lines: []string{InitComplete}},
		{name: "missing completion", typ: models.TypePair, lines: []string{InitComplete, ResultEqual}},
		{name: "unknown result line", typ: models.TypePair, lines: []string{InitComplete, "RESULT: MAYBE", ExperimentComplete}},
		{name: "pair without result", typ: models.TypePair, lines: []string{InitComplete, ExperimentComplete}},
		{name: "single missing separator", typ: models.TypeSingle, lines: []string{InitComplete, FuncCacheFull, Separator, Separator, ExperimentComplete}},
		{name: "single unknown function", typ: models.TypeSingle, lines: []string{InitComplete, Separator, "print_cache_all", Separator, Separator, ExperimentComplete}},
		{name: "single unclosed body", typ: models.TypeSingle, lines: []string{InitComplete, Separator, FuncCacheFull, Separator, "set=0", ExperimentComplete}},
		{name: "valid-only max set index", typ: models.TypeSingle, lines: []string{InitComplete, Separator, FuncCacheSimp, Separator, "9223372036854775807 :: 0 :: tag: abc", Separator, ExperimentComplete}},
		{name: "valid-only set index beyond body", typ: models.TypeSingle, lines: []string{InitComplete, Separator, FuncCacheSimp, Separator, "100000000 :: 0 :: tag: x", Separator, ExperimentComplete}},
		{name: "valid-only line index beyond body", typ: models.TypeSingle, lines: []string{InitComplete, Separator, FuncCacheSimp, Separator, "0 :: 100000000 :: tag: x", Separator, ExperimentComplete}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestDecoder().Decode(tt.typ, transcript(tt.lines...))
			if !errors.Is(err, ErrGrammar) {
				t.Errorf("expected ErrGrammar, got %v", err)
			}
		})
	}
}

func single(fn string, body ...string) []byte {
	lines := []string{InitComplete, Separator, fn, Separator}
	lines = append(lines, body...)
	lines = append(lines, Separator, ExperimentComplete)
	return transcript(lines...)
}

func TestDecode_SingleFull(t *testing.T) {
	raw := single(FuncCacheFull,
		"set=0", "line=0", "valid:1", "tag:abc",
		"set=1", "line=0", "valid:0", "tag:def",
	)

	got, err := newTestDecoder().Decode(models.TypeSingle, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	snap, ok := got.(models.CacheSnapshot)
	if !ok {
		t.Fatalf("Decode() = %T, want CacheSnapshot", got)
	}
	if len(snap.Sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(snap.Sets))
	}

	clean := Clean(snap.Sets)
	want := []models.CacheSet{
		{Index: 0, Lines: []models.CacheLine{{Line: 0, Valid: true, Tag: "abc", HasTag: true}}},
	}
	if !reflect.DeepEqual(clean, want) {
		t.Errorf("Clean() = %#v, want %#v", clean, want)
	}
}

func TestDecode_SingleFullExtraFields(t *testing.T) {
	raw := single(FuncCacheFull,
		"set=0",
		"line=0", "valid:1", "tag:0x10", "regs: 1 2 3",
		"line=1", "valid:0",
	)

	got, err := newTestDecoder().Decode(models.TypeSingle, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	snap := got.(models.CacheSnapshot)
	line := snap.Sets[0].Lines[0]
	if !reflect.DeepEqual(line.Extra, []models.Field{{Name: "regs", Value: "1 2 3"}}) {
		t.Errorf("Extra = %#v", line.Extra)
	}
	if len(snap.Sets[0].Lines) != 2 {
		t.Errorf("expected two lines before cleaning, got %d", len(snap.Sets[0].Lines))
	}

	clean := Clean(snap.Sets)
	if len(clean[0].Lines) != 1 || clean[0].Lines[0].Extra != nil {
		t.Errorf("Clean() = %#v", clean)
	}
}

func TestDecode_SingleFullGrammarErrors(t *testing.T) {
	tests := []struct {
		name string
		body []string
	}{
		{name: "set index gap", body: []string{"set=1", "line=0", "valid:1"}},
		{name: "line index gap", body: []string{"set=0", "line=1", "valid:1"}},
		{name: "duplicate field", body: []string{"set=0", "line=0", "valid:1", "tag:a", "tag:b"}},
		{name: "duplicate valid", body: []string{"set=0", "line=0", "valid:1", "valid:1"}},
		{name: "valid out of range", body: []string{"set=0", "line=0", "valid:2"}},
		{name: "valid as word", body: []string{"set=0", "line=0", "valid:true"}},
		{name: "missing valid", body: []string{"set=0", "line=0", "tag:a"}},
		{name: "field before line", body: []string{"set=0", "valid:1"}},
		{name: "field without colon", body: []string{"set=0", "line=0", "valid 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestDecoder().Decode(models.TypeSingle, single(FuncCacheFull, tt.body...))
			if !errors.Is(err, ErrGrammar) {
				t.Errorf("expected ErrGrammar, got %v", err)
			}
		})
	}
}

func TestDecode_SingleValidOnly(t *testing.T) {
	raw := single(FuncCacheSimp,
		"0 :: 1 :: tag: 0x1f",
		"2 :: 0 :: tag: 0x20",
		"2 :: 3 :: tag: 0x21",
	)

	got, err := newTestDecoder().Decode(models.TypeSingle, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := models.CacheSnapshot{Sets: []models.CacheSet{
		{Index: 0, Lines: []models.CacheLine{{Line: 1, Valid: true, Tag: "0x1f", HasTag: true}}},
		{Index: 1, Lines: []models.CacheLine{}},
		{Index: 2, Lines: []models.CacheLine{{Line: 0, Valid: true, Tag: "0x20", HasTag: true}, {Line: 3, Valid: true, Tag: "0x21", HasTag: true}}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode() = %#v, want %#v", got, want)
	}

	clean := Clean(want.Sets)
	if len(clean) != 2 || clean[0].Index != 0 || clean[1].Index != 2 {
		t.Errorf("Clean() = %#v", clean)
	}
}

func TestDecode_SingleDispatchesOnFunctionLine(t *testing.T) {
	// A full-grammar body announced as valid-only must not be parsed as full.
	raw := single(FuncCacheSimp, "set=0", "line=0", "valid:1")
	if _, err := newTestDecoder().Decode(models.TypeSingle, raw); !errors.Is(err, ErrGrammar) {
		t.Errorf("expected ErrGrammar, got %v", err)
	}
}

func TestDecode_SingleInconclusiveNote(t *testing.T) {
	raw := transcript(InitComplete, Separator, FuncCacheFull, Separator,
		"set=0", "line=0", "valid:1", "tag:a",
		Separator, "INCONCLUSIVE: cache was flushed", ExperimentComplete)

	got, err := newTestDecoder().Decode(models.TypeSingle, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	snap := got.(models.CacheSnapshot)
	if snap.Note != "INCONCLUSIVE: cache was flushed" {
		t.Errorf("Note = %q", snap.Note)
	}
	if len(snap.Sets) != 1 || snap.Sets[0].Lines[0].Tag != "a" {
		t.Errorf("unexpected sets %#v", snap.Sets)
	}
}

func TestDecode_SingleEmptyBody(t *testing.T) {
	got, err := newTestDecoder().Decode(models.TypeSingle, single(FuncCacheFull))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if snap := got.(models.CacheSnapshot); len(snap.Sets) != 0 {
		t.Errorf("expected no sets, got %#v", snap.Sets)
	}
}

func TestClean_Empty(t *testing.T) {
	if got := Clean(nil); got == nil || len(got) != 0 {
		t.Errorf("Clean(nil) = %#v, want empty slice", got)
	}
}

func TestDecode_SingleWithoutTag(t *testing.T) {
	got, err := newTestDecoder().Decode(models.TypeSingle, single(FuncCacheSimp, "0 :: 0 :: regs: 5"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	clean := models.CacheSnapshot{Sets: Clean(got.(models.CacheSnapshot).Sets)}
	want := `[{"set": 0, "lines": [{"line": 0, "valid": true}]}]`
	if blob := string(models.EncodeResult(clean)); blob != want {
		t.Errorf("EncodeResult() = %s, want %s", blob, want)
	}

	got, err = newTestDecoder().Decode(models.TypeSingle, single(FuncCacheFull, "set=0", "line=0", "valid:1"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if line := got.(models.CacheSnapshot).Sets[0].Lines[0]; line.HasTag {
		t.Errorf("line without tag field has HasTag set: %#v", line)
	}
}

func TestDecode_SingleValidOnlySparseIndices(t *testing.T) {
	got, err := newTestDecoder().Decode(models.TypeSingle, single(FuncCacheSimp, "127 :: 3 :: tag: 0x7f"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	sets := got.(models.CacheSnapshot).Sets
	if len(sets) != 128 {
		t.Fatalf("got %d sets, want 128", len(sets))
	}
	want := []models.CacheLine{{Line: 3, Valid: true, Tag: "0x7f", HasTag: true}}
	if !reflect.DeepEqual(sets[127].Lines, want) {
		t.Errorf("set 127 = %#v, want %#v", sets[127].Lines, want)
	}
}
