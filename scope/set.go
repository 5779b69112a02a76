// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package scope

import (
	"net"
	"net/netip"
	"strings"

	"github.com/thediveo/lxkns/log"
	"github.com/yl2chen/cidranger"
)

// Set is an immutable, ordered collection of IPv4 ranges defining the scope.
// The same range might appear multiple times. A Set is safe for concurrent use.
type Set struct {
	ranges []Range
	ranger cidranger.Ranger // for looking up addresses in the ranges.
}

// NewSet returns a new Set consisting of the specified ranges, in the given
// order.
func NewSet(ranges ...Range) *Set {
	s := &Set{
		ranges: append([]Range(nil), ranges...),
		ranger: cidranger.NewPCTrieRanger(),
	}
	for _, r := range s.ranges {
		// Inserting a duplicate network simply replaces the existing trie
		// entry, so the lookup trie doesn't care about duplicates.
		if err := s.ranger.Insert(cidranger.NewBasicRangerEntry(r.IPNet())); err != nil {
			panic(err) // IPv4 networks always fit into an IPv4 trie.
		}
	}
	return s
}

// Len returns the number of ranges in this set, including any duplicates.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ranges)
}

// Ranges returns (a copy of) the ranges in this set, in the order they were added.
func (s *Set) Ranges() []Range {
	if s == nil {
		return nil
	}
	return append([]Range(nil), s.ranges...)
}

// String returns the comma-separated list of ranges in this set.
func (s *Set) String() string {
	cidrs := make([]string, 0, s.Len())
	for _, r := range s.Ranges() {
		cidrs = append(cidrs, r.String())
	}
	return strings.Join(cidrs, ", ")
}

// Contains returns true if addr is a valid IPv4 (host) address that lies within
// at least one of the ranges in this set. Anything that doesn't parse as an
// IPv4 address is never in scope.
func (s *Set) Contains(addr string) bool {
	if s.Len() == 0 {
		return false
	}
	a, err := netip.ParseAddr(addr)
	if err != nil || !a.Is4() {
		return false
	}
	return s.ContainsAddr(a)
}

// ContainsAddr returns true if the IPv4 address addr lies within at least one
// of the ranges in this set.
func (s *Set) ContainsAddr(addr netip.Addr) bool {
	if s.Len() == 0 || !addr.Is4() {
		return false
	}
	ok, err := s.ranger.Contains(net.IP(addr.AsSlice()))
	if err != nil {
		log.Debugf("cannot look up address %s: %s", addr, err.Error())
		return false
	}
	return ok
}
