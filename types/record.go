// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import "fmt"

// Record is a hostname together with a single address it resolved to, as well
// as the reachability of this address (if probed at all).
type Record struct {
	Hostname string
	Address  string
	Reach    Reachability
}

// String returns the "hostname: address" representation used both on the
// console and in result files.
func (r Record) String() string {
	return fmt.Sprintf("%s: %s", r.Hostname, r.Address)
}

// WithReach returns a copy of the record with its reachability updated.
func (r Record) WithReach(reach Reachability) Record {
	r.Reach = reach
	return r
}
