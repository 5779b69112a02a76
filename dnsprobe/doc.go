/*
Package dnsprobe runs an external hostname resolver executable and collects the
hostnames and addresses it reports. The executable defaults to
[dnsprobe] and is expected to be called as

	dnsprobe -l hostfile

with hostfile listing one hostname per line, and to print "hostname address"
lines for each resolved hostname on stdout.

A missing executable isn't treated as a failure by callers of this package,
but [Resolver.Resolve] reports it as [ErrResolverNotFound] so it can be told
apart from "nothing resolved".

[dnsprobe]: https://github.com/projectdiscovery/dnsprobe
*/
package dnsprobe
