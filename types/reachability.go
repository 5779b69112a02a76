// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import "fmt"

// Reachability indicates whether the address of a [Record] answered to probes.
type Reachability int

// The reachability states of a record's address.
const (
	Unprobed    Reachability = iota // address wasn't probed (yet).
	Probing                         // address in probing.
	Unreachable                     // address didn't answer (enough).
	Reachable                       // address answered.
)

// String returns the clear-text representation of a Reachability value.
func (r Reachability) String() string {
	switch r {
	case Unprobed:
		return "unprobed"
	case Probing:
		return "probing"
	case Unreachable:
		return "unreachable"
	case Reachable:
		return "reachable"
	}
	return fmt.Sprintf("Reachability(%d)", r)
}

// IsFinal returns true when probing an address came to a verdict.
func (r Reachability) IsFinal() bool {
	switch r {
	case Unreachable, Reachable:
		return true
	default:
		return false
	}
}
