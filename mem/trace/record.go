// Package trace reads memory traces and replays them against a cache.
package trace

import "fmt"

// Kind is the kind of memory operation of a trace record.
type Kind byte

// Supported record kinds. The values are the letters used in trace files.
const (
	Load   Kind = 'L'
	Store  Kind = 'S'
	Modify Kind = 'M'
)

// ParseKind converts a trace letter into a Kind. Instruction fetches ('I')
// and any other letter are not data accesses and are rejected.
func ParseKind(c byte) (Kind, bool) {
	switch Kind(c) {
	case Load, Store, Modify:
		return Kind(c), true
	default:
		return 0, false
	}
}

// String returns the trace letter.
func (k Kind) String() string {
	return string(rune(k))
}

// A Record is one data access of a trace.
type Record struct {
	Kind    Kind
	Address uint64
	Length  uint64
}

// String formats the record the way it is echoed in verbose output.
func (r Record) String() string {
	return fmt.Sprintf("%c %x,%d", r.Kind, r.Address, r.Length)
}
