package models

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf16"
)

// Outcome is the decoded result of one experiment run. The set of variants is
// closed: BoardException, Inconclusive, PairResult and CacheSnapshot.
type Outcome interface {
	// Kind is a short stable name of the variant, used in the run ledger.
	Kind() string
	isOutcome()
}

// Outcome kinds.
const (
	KindException    = "exception"
	KindInconclusive = "inconclusive"
	KindEqual        = "equal"
	KindUnequal      = "unequal"
	KindSnapshot     = "snapshot"
)

// BoardException is reported when the board printed an EXCEPTION line.
type BoardException struct {
	Message string
}

// Inconclusive carries the full INCONCLUSIVE line printed by the board.
type Inconclusive struct {
	Message string
}

// PairResult tells whether both inputs of a pair experiment left the cache equal.
type PairResult struct {
	Equal bool
}

// CacheSnapshot is the cache content captured by a single-run experiment.
// Note holds a trailing INCONCLUSIVE line, if the board printed one.
type CacheSnapshot struct {
	Sets []CacheSet
	Note string
}

func (BoardException) Kind() string { return KindException }
func (Inconclusive) Kind() string   { return KindInconclusive }
func (CacheSnapshot) Kind() string  { return KindSnapshot }
func (p PairResult) Kind() string {
	if p.Equal {
		return KindEqual
	}
	return KindUnequal
}

func (BoardException) isOutcome() {}
func (Inconclusive) isOutcome()   {}
func (PairResult) isOutcome()     {}
func (CacheSnapshot) isOutcome()  {}

// CacheSet is one cache set and its lines.
type CacheSet struct {
	Index int
	Lines []CacheLine
}

// CacheLine is one line of a cache set. HasTag is false when the board printed
// no tag field. Extra keeps any fields the board printed besides valid and tag,
// in transcript order.
type CacheLine struct {
	Line   int
	Valid  bool
	Tag    string
	HasTag bool
	Extra  []Field
}

// Field is a named value printed for a cache line.
type Field struct {
	Name  string
	Value string
}

// Result blob prefixes for the string-valued outcomes.
const (
	resultInconclusivePrefix = "special :::: "
	resultExceptionPrefix    = "embexp.board.exception :::: "
)

// EncodeResult renders the result blob stored next to the transcript. The layout
// (", " and ": " separators, ASCII-only strings) is fixed: result blobs are compared
// byte for byte against earlier runs.
func EncodeResult(o Outcome) []byte {
	var b bytes.Buffer
	switch v := o.(type) {
	case PairResult:
		b.WriteString(strconv.FormatBool(v.Equal))
	case Inconclusive:
		writeQuoted(&b, resultInconclusivePrefix+v.Message)
	case BoardException:
		writeQuoted(&b, resultExceptionPrefix+v.Message)
	case CacheSnapshot:
		b.WriteByte('[')
		for i, set := range v.Sets {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, `{"set": %d, "lines": [`, set.Index)
			for j, line := range set.Lines {
				if j > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, `{"line": %d, "valid": %t`, line.Line, line.Valid)
				if line.HasTag {
					b.WriteString(`, "tag": `)
					writeQuoted(&b, line.Tag)
				}
				for _, f := range line.Extra {
					b.WriteString(", ")
					writeQuoted(&b, f.Name)
					b.WriteString(": ")
					writeQuoted(&b, f.Value)
				}
				b.WriteByte('}')
			}
			b.WriteString("]}")
		}
		b.WriteByte(']')
	default:
		panic(fmt.Sprintf("unknown outcome %T", o))
	}
	return b.Bytes()
}

func writeQuoted(b *bytes.Buffer, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\b':
			b.WriteString(`\b`)
		case r == '\f':
			b.WriteString(`\f`)
		case r < 0x20:
			fmt.Fprintf(b, `\u%04x`, r)
		case r < 0x80:
			b.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(b, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(b, `\u%04x`, r)
		}
	}
	b.WriteByte('"')
}

// ResultClass groups stored result blobs for status reporting.
type ResultClass string

const (
	ResultExample        ResultClass = "example"
	ResultCounterexample ResultClass = "counterexample"
	ResultInconclusive   ResultClass = "inconclusive"
	ResultException      ResultClass = "exception"
	ResultSnapshot       ResultClass = "snapshot"
	ResultOther          ResultClass = "other"
)

// ClassifyResult maps a stored result blob to its class.
func ClassifyResult(data []byte) ResultClass {
	switch {
	case string(data) == "true":
		return ResultExample
	case string(data) == "false":
		return ResultCounterexample
	case bytes.HasPrefix(data, []byte(`"`+resultInconclusivePrefix+"INCONCLUSIVE: ")):
		return ResultInconclusive
	case bytes.HasPrefix(data, []byte(`"`+resultExceptionPrefix)):
		return ResultException
	case bytes.HasPrefix(data, []byte("[")):
		return ResultSnapshot
	default:
		return ResultOther
	}
}
