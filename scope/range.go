// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package scope

import (
	"errors"
	"fmt"
	"math/bits"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ErrInvalidRange is returned (wrapped) by ParseRange for literals that are not
// valid IPv4 networks.
var ErrInvalidRange = errors.New("invalid IPv4 CIDR range")

// Range is an IPv4 network in prefix notation, with its host bits cleared.
type Range struct {
	prefix netip.Prefix
}

// ParseRange parses an IPv4 network literal, such as "10.0.0.0/24". Host bits
// are cleared instead of being rejected, so "10.0.0.5/24" becomes
// "10.0.0.0/24". Besides a prefix length, the network part also might be given
// as a dotted net mask ("10.0.0.0/255.255.255.0") or host mask
// ("10.0.0.0/0.0.0.255"); a plain address without any network part denotes a
// /32 network.
func ParseRange(literal string) (Range, error) {
	s := strings.TrimSpace(literal)
	addrpart, netpart, hasNetpart := strings.Cut(s, "/")
	addr, err := netip.ParseAddr(addrpart)
	if err != nil || !addr.Is4() {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, literal)
	}
	ones := 32
	if hasNetpart {
		var ok bool
		if ones, ok = prefixLength(netpart); !ok {
			return Range{}, fmt.Errorf("%w: %q has invalid network part", ErrInvalidRange, literal)
		}
	}
	prefix, err := addr.Prefix(ones)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, literal)
	}
	return Range{prefix: prefix}, nil
}

// MustParseRange is like ParseRange but panics in case of an invalid literal.
func MustParseRange(literal string) Range {
	r, err := ParseRange(literal)
	if err != nil {
		panic(err)
	}
	return r
}

// prefixLength returns the number of leading one bits of an IPv4 network,
// given either as a decimal prefix length or a dotted net/host mask.
func prefixLength(netpart string) (int, bool) {
	if netpart == "" {
		return 0, false
	}
	if strings.Trim(netpart, "0123456789") == "" {
		ones, err := strconv.Atoi(netpart)
		if err != nil || ones > 32 {
			return 0, false
		}
		return ones, true
	}
	mask, err := netip.ParseAddr(netpart)
	if err != nil || !mask.Is4() {
		return 0, false
	}
	m4 := mask.As4()
	m := uint32(m4[0])<<24 | uint32(m4[1])<<16 | uint32(m4[2])<<8 | uint32(m4[3])
	if ones, ok := netmaskOnes(m); ok {
		return ones, true
	}
	return netmaskOnes(^m)
}

// netmaskOnes returns the number of leading one bits of m if m is a proper
// net mask consisting of leading ones followed only by zeros.
func netmaskOnes(m uint32) (int, bool) {
	ones := bits.LeadingZeros32(^m)
	if ones == 32 {
		return 32, true
	}
	return ones, m == ^uint32(0)<<(32-ones)
}

// Prefix returns the network prefix of this range.
func (r Range) Prefix() netip.Prefix { return r.prefix }

// Bits returns the prefix length.
func (r Range) Bits() int { return r.prefix.Bits() }

// String returns the range in CIDR notation.
func (r Range) String() string { return r.prefix.String() }

// Contains returns true if addr lies within this range.
func (r Range) Contains(addr netip.Addr) bool {
	return r.prefix.Contains(addr)
}

// IPNet returns the range as a net.IPNet.
func (r Range) IPNet() net.IPNet {
	return net.IPNet{
		IP:   net.IP(r.prefix.Addr().AsSlice()),
		Mask: net.CIDRMask(r.prefix.Bits(), 32),
	}
}
