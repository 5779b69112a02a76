// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package scope

import "github.com/siemens/cidrscope/types"

// Filter returns the hostname/address records from the specified address map
// whose addresses are in scope. The records keep the order of the address map.
func Filter(m *types.AddressMap, s *Set) []types.Record {
	inscope := []types.Record{}
	for _, addr := range m.Addresses() {
		if !s.Contains(addr) {
			continue
		}
		for _, hostname := range m.Hostnames(addr) {
			inscope = append(inscope, types.Record{
				Hostname: hostname,
				Address:  addr,
			})
		}
	}
	return inscope
}

// Filter returns the in-scope records from the specified address map; see
// also [Filter].
func (s *Set) Filter(m *types.AddressMap) []types.Record {
	return Filter(m, s)
}
