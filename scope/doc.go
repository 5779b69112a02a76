/*
Package scope implements the scope of an assessment in form of a [Set] of IPv4
ranges, and filtering resolved hostnames down to those resolving into the
scope.

A Set is built once using a [Builder] from CIDR files and individual CIDR
literals. Invalid literals are skipped (with a warning passed to a [WarnFunc])
instead of failing the whole build, while a missing CIDR file as well as ending
up without any valid range are errors.

	set, err := scope.Build("cidrs.txt", []string{"192.168.1.0/24"})
	if err != nil {
	    // ...
	}
	inscope := set.Filter(addrmap)

CIDR literals are parsed non-strictly: set host bits are cleared instead of
rejecting the literal. Looking up addresses uses a path-compressed prefix trie
from [yl2chen/cidranger].

[yl2chen/cidranger]: https://github.com/yl2chen/cidranger
*/
package scope
