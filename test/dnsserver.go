// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package test

import (
	"net"
	"strings"

	"github.com/miekg/dns"

	gi "github.com/onsi/ginkgo/v2"
	g "github.com/onsi/gomega"
	s "github.com/thediveo/success"
)

// NewDNSServer starts a DNS server on a random UDP port on the IPv4 loopback
// and returns its address. The server answers A queries for the names in the
// specified answers map (with or without trailing dots) with the listed
// addresses, and with NXDOMAIN for any other name. Names mapping to an empty
// list of addresses exist, but without any A records. The server is shut down
// after the current test.
func NewDNSServer(answers map[string][]string) string {
	gi.GinkgoHelper()

	zone := map[string][]string{}
	for name, addrs := range answers {
		zone[strings.ToLower(dns.Fqdn(name))] = addrs
	}
	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		resp := &dns.Msg{}
		resp.SetReply(req)
		if len(req.Question) == 1 {
			q := req.Question[0]
			addrs, ok := zone[strings.ToLower(q.Name)]
			switch {
			case !ok:
				resp.SetRcode(req, dns.RcodeNameError)
			case q.Qtype == dns.TypeA:
				for _, addr := range addrs {
					resp.Answer = append(resp.Answer, &dns.A{
						Hdr: dns.RR_Header{
							Name:   q.Name,
							Rrtype: dns.TypeA,
							Class:  dns.ClassINET,
							Ttl:    60,
						},
						A: net.ParseIP(addr),
					})
				}
			}
		}
		_ = w.WriteMsg(resp)
	})

	pc := s.Successful(net.ListenPacket("udp", "127.0.0.1:0"))
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           mux,
		NotifyStartedFunc: func() { close(started) },
	}
	go func() { _ = srv.ActivateAndServe() }()
	g.Eventually(started).Should(g.BeClosed())
	gi.DeferCleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}
