// Package encoder turns a declared machine state into the instruction text that
// establishes it on the board.
// This is part of the Functional Core - no I/O, only pure functions.
package encoder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/embexp/internal/models"
)

// ErrNoScratch is returned when no pair of scratch registers is available for
// memory setup.
var ErrNoScratch = errors.New("no scratch registers available")

// ScratchPolicy selects the registers used while writing memory.
type ScratchPolicy int

const (
	// ScratchFixed always uses x1/w1 for values and x0 for addresses. Every
	// stored run so far was generated with this pair, so it keeps the setup
	// text of existing experiments unchanged.
	ScratchFixed ScratchPolicy = iota
	// ScratchAvoidTargets uses the lowest-numbered pair of general purpose
	// registers that the state does not set.
	ScratchAvoidTargets
)

// ParseScratchPolicy parses "fixed" or "avoid".
func ParseScratchPolicy(s string) (ScratchPolicy, error) {
	switch s {
	case "", "fixed":
		return ScratchFixed, nil
	case "avoid":
		return ScratchAvoidTargets, nil
	default:
		return 0, fmt.Errorf("unknown scratch policy %q (want fixed or avoid)", s)
	}
}

func (p ScratchPolicy) String() string {
	if p == ScratchAvoidTargets {
		return "avoid"
	}
	return "fixed"
}

// Options configures Encode.
type Options struct {
	Scratch ScratchPolicy
}

// highest register index usable as scratch (x29/x30 are frame pointer and link register)
const maxScratchIndex = 28

// scratch names the value and address registers used for memory setup.
type scratch struct {
	value int
	addr  int
}

func (s scratch) valueX() string { return "x" + strconv.Itoa(s.value) }
func (s scratch) valueW() string { return "w" + strconv.Itoa(s.value) }
func (s scratch) addrX() string  { return "x" + strconv.Itoa(s.addr) }

func pickScratch(policy ScratchPolicy, regs map[string]uint64) (scratch, error) {
	if policy == ScratchFixed {
		return scratch{value: 1, addr: 0}, nil
	}
	used := make(map[int]bool)
	for name := range regs {
		if idx, ok := registerIndex(name); ok {
			used[idx] = true
		}
	}
	var free []int
	for i := 0; i <= maxScratchIndex && len(free) < 2; i++ {
		if !used[i] {
			free = append(free, i)
		}
	}
	if len(free) < 2 {
		return scratch{}, ErrNoScratch
	}
	return scratch{value: free[1], addr: free[0]}, nil
}

// registerIndex maps xN and wN to N.
func registerIndex(name string) (int, bool) {
	if len(name) < 2 || (name[0] != 'x' && name[0] != 'w') {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Program is the generated setup code, one entry per text line. Comment lines
// start with "//"; empty entries are blank lines.
type Program struct {
	lines []string
}

// Lines returns a copy of the program lines.
func (p Program) Lines() []string {
	return append([]string(nil), p.lines...)
}

// String renders the program as assembler source with tab-indented lines.
func (p Program) String() string {
	var b strings.Builder
	for _, line := range p.lines {
		if line != "" {
			b.WriteByte('\t')
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Count returns the number of instructions using the given mnemonic.
func (p Program) Count(mnemonic string) int {
	n := 0
	for _, line := range p.lines {
		if strings.HasPrefix(line, mnemonic+" ") {
			n++
		}
	}
	return n
}

func (p *Program) emit(lines ...string) {
	p.lines = append(p.lines, lines...)
}

// Encode generates the setup code for state. Memory is written first using the
// scratch registers, which are then zeroed; the register part follows, so the
// target registers always end up with their declared values.
func Encode(state models.StateMap, opts Options) (Program, error) {
	s, err := pickScratch(opts.Scratch, state.Registers)
	if err != nil {
		return Program{}, err
	}

	var p Program
	encodeMemory(&p, state.Memory, s)

	p.emit("",
		"// reset the temporary registers to zero",
		fmt.Sprintf("mov %s, #0", s.addrX()),
		fmt.Sprintf("mov %s, #0", s.valueX()),
	)
	p.emit("", "")

	for _, reg := range state.SortedRegisters() {
		encodeRegister(&p, reg, state.Registers[reg])
	}
	p.emit("")

	return p, nil
}

// encodeRegister emits the same five lines for every value: the value as a
// comment and four 16-bit movk steps, least significant chunk first.
func encodeRegister(p *Program, reg string, val uint64) {
	p.emit(fmt.Sprintf("// %s = 0x%016x", reg, val))
	for i := range 4 {
		chunk := (val >> (16 * i)) & 0xFFFF
		p.emit(fmt.Sprintf("movk %s, #0x%04x, lsl #%d", reg, chunk, 16*i))
	}
	p.emit("")
}

func encodeMemory(p *Program, mem map[uint64]uint8, s scratch) {
	groups := make(map[uint64][8]bool)
	var bases []uint64
	for _, addr := range (models.StateMap{Memory: mem}).SortedAddresses() {
		base := addr &^ 0b111
		present, seen := groups[base]
		if !seen {
			bases = append(bases, base)
		}
		present[addr-base] = true
		groups[base] = present
	}

	for _, base := range bases {
		present := groups[base]
		if complete(present) {
			var word uint64
			for off := 7; off >= 0; off-- {
				word = word<<8 | uint64(mem[base+uint64(off)])
			}
			p.emit(fmt.Sprintf("// MEM[0x%016x] =LONG= 0x%016x", base, word))
			encodeRegister(p, s.valueX(), word)
			encodeRegister(p, s.addrX(), base)
			p.emit(fmt.Sprintf("str %s, [%s]", s.valueX(), s.addrX()), "")
			continue
		}
		for off := range 8 {
			if !present[off] {
				continue
			}
			val := mem[base+uint64(off)]
			p.emit(fmt.Sprintf("// MEM[0x%016x] =BYTE= 0x%02x", base+uint64(off), val))
			p.emit(fmt.Sprintf("// %s = 0x%016x", s.valueW(), val),
				fmt.Sprintf("movk %s, #0x%04x, lsl #0", s.valueW(), val),
				"")
			encodeRegister(p, s.addrX(), base)
			p.emit(fmt.Sprintf("strb %s, [%s, %d]", s.valueW(), s.addrX(), off), "")
		}
	}
}

func complete(present [8]bool) bool {
	for _, ok := range present {
		if !ok {
			return false
		}
	}
	return true
}
