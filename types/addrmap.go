// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import "sync"

// AddressMap maps resolved IP addresses (in textual form) to the hostnames
// resolving to them. Addresses are kept in the order in which they were first
// added, and so are the hostnames per address.
//
// An AddressMap is safe for concurrent use, so resolver workers can add their
// findings directly.
type AddressMap struct {
	mu    sync.Mutex
	order []string
	m     map[string][]string
}

// NewAddressMap returns a new and properly initialized AddressMap.
func NewAddressMap() *AddressMap {
	return &AddressMap{
		m: map[string][]string{},
	}
}

// Add records that hostname resolved to addr. Adding the same pair multiple
// times keeps only the first one. Empty hostnames or addresses are ignored.
func (m *AddressMap) Add(hostname, addr string) {
	if hostname == "" || addr == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hostnames, ok := m.m[addr]
	if !ok {
		m.order = append(m.order, addr)
	}
	for _, h := range hostnames {
		if h == hostname {
			return
		}
	}
	m.m[addr] = append(hostnames, hostname)
}

// Len returns the number of distinct addresses.
func (m *AddressMap) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Addresses returns the distinct addresses in the order they were first added.
func (m *AddressMap) Addresses() []string {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Hostnames returns (a copy of) the hostnames resolving to addr.
func (m *AddressMap) Hostnames(addr string) []string {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.m[addr]...)
}

// Records returns all hostname/address pairs, in address order and then in
// hostname order per address.
func (m *AddressMap) Records() []Record {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]Record, 0, len(m.order))
	for _, addr := range m.order {
		for _, hostname := range m.m[addr] {
			recs = append(recs, Record{Hostname: hostname, Address: addr})
		}
	}
	return recs
}
