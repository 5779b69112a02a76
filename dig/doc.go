/*
Package dig implements cidrscope's built-in hostname-to-address digger, as an
alternative to running an external resolver executable. The knack here is that
the address digging optionally is done from within a specific network
namespace, such as the one of a Docker container.

The digging runs concurrently, but under the constraints of a limited number
of DNS workers, see [github.com/siemens/cidrscope/dnsworker].

Digging is implemented in pure Go, leveraging the incredible Go module
[miekg/dns].

[miekg/dns]: https://github.com/miekg/dns
*/
package dig
