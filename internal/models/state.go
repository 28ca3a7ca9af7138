package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// memKey holds the sparse memory map inside an input file.
const memKey = "mem"

// Cacheable addresses live in (cacheableBase, 2*cacheableBase); the same physical
// memory is reachable uncached at addr - cacheableBase.
const cacheableBase = 0x80000000

// StateMap is the declared machine state of one experiment input.
type StateMap struct {
	Registers map[string]uint64
	Memory    map[uint64]uint8
}

// NewStateMap returns an empty state with both maps allocated.
func NewStateMap() StateMap {
	return StateMap{
		Registers: make(map[string]uint64),
		Memory:    make(map[uint64]uint8),
	}
}

// SortedRegisters returns the register names in natural order (x2 before x10).
func (s StateMap) SortedRegisters() []string {
	names := slices.Collect(maps.Keys(s.Registers))
	slices.SortFunc(names, CompareRegisters)
	return names
}

// SortedAddresses returns the memory addresses in ascending order.
func (s StateMap) SortedAddresses() []uint64 {
	addrs := slices.Collect(maps.Keys(s.Memory))
	slices.Sort(addrs)
	return addrs
}

// CompareRegisters orders register names by alphabetic prefix, then numeric suffix.
func CompareRegisters(a, b string) int {
	pa, na, oka := splitRegister(a)
	pb, nb, okb := splitRegister(b)
	if c := strings.Compare(pa, pb); c != 0 {
		return c
	}
	switch {
	case oka && okb:
		if na != nb {
			return na - nb
		}
	case oka != okb:
		if oka {
			return 1
		}
		return -1
	}
	return strings.Compare(a, b)
}

func splitRegister(name string) (prefix string, num int, ok bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return name, 0, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], n, true
}

// Uncacheable moves every memory address from the cacheable alias window to
// its uncacheable alias.
func (s StateMap) Uncacheable() (StateMap, error) {
	out := StateMap{
		Registers: maps.Clone(s.Registers),
		Memory:    make(map[uint64]uint8, len(s.Memory)),
	}
	if out.Registers == nil {
		out.Registers = make(map[string]uint64)
	}
	for addr, v := range s.Memory {
		if addr <= cacheableBase || addr >= 2*cacheableBase {
			return StateMap{}, fmt.Errorf("address 0x%x is outside the cacheable window", addr)
		}
		out.Memory[addr-cacheableBase] = v
	}
	return out, nil
}

// DecodeStateJSON parses an input file of the form
//
//	{"x0": 5, "x1": 18446744073709551615, "mem": {"2147483656": 255}}
//
// Register values must be integers in [0, 2^64), memory values in [0, 256).
// Repeated registers or addresses are rejected.
func DecodeStateJSON(data []byte) (StateMap, error) {
	state := NewStateMap()
	sawMem := false
	err := walkObject(data, func(key string, raw json.RawMessage) error {
		if key == memKey {
			if sawMem {
				return fmt.Errorf("duplicate %q object", memKey)
			}
			sawMem = true
			return walkObject(raw, func(addrKey string, raw json.RawMessage) error {
				addr, err := strconv.ParseUint(addrKey, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid memory address %q: %w", addrKey, err)
				}
				if _, dup := state.Memory[addr]; dup {
					return fmt.Errorf("memory address %d appears twice", addr)
				}
				v, err := parseUint(raw, 8)
				if err != nil {
					return fmt.Errorf("invalid byte at address %d: %w", addr, err)
				}
				state.Memory[addr] = uint8(v)
				return nil
			})
		}
		if _, dup := state.Registers[key]; dup {
			return fmt.Errorf("register %s appears twice", key)
		}
		v, err := parseUint(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid value for register %s: %w", key, err)
		}
		state.Registers[key] = v
		return nil
	})
	if err != nil {
		return StateMap{}, fmt.Errorf("failed to decode state: %w", err)
	}
	return state, nil
}

func parseUint(raw json.RawMessage, bits int) (uint64, error) {
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return 0, err
	}
	return strconv.ParseUint(num.String(), 10, bits)
}

// walkObject calls fn for every key of a JSON object in document order, so that
// repeated keys are visible to the caller.
func walkObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Readable renders the registers of a state with the tag/set/offset split
// used by the cache experiments.
func (s StateMap) Readable() string {
	var b strings.Builder
	for _, reg := range s.SortedRegisters() {
		v := s.Registers[reg]
		fmt.Fprintf(&b, "%-5s = 0x%016x ::: (ts=0x%016x, s=0x%02x, o=0x%02x)\n",
			reg, v, v&^uint64(0x3F), (v>>6)&0x7F, v&0x3F)
	}
	for _, addr := range s.SortedAddresses() {
		fmt.Fprintf(&b, "MEM[0x%016x] = 0x%02x\n", addr, s.Memory[addr])
	}
	return b.String()
}
