/*
Package types defines cidrscope's information model, which is deliberately
small: a [Record] is a hostname paired with one of the addresses it resolved
to, and an [AddressMap] collects the findings of a resolver, mapping each
resolved address to the hostnames resolving to it.

The order of an AddressMap is the order in which addresses (and hostnames per
address) were first recorded, so results derived from it keep the order in
which a resolver reported its findings.

Optionally, the [Reachability] of a record's address can be probed; records
not probed stay [Unprobed].
*/
package types
