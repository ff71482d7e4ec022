// Copyright (C) 2017 Kale Blankenship. All rights reserved.
// This software may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details

package tftp

import (
	"fmt"
	"net"
)

// peer tracks the server endpoint for a session: the address is fixed
// for the life of the session (spec.md §4.3), but the port is learned
// from the first legal reply and never changes after that (the TID
// rule, RFC 1350 §4).
type peer struct {
	network  string // "udp4" or "udp6", set once from the request's address family
	ip       net.IP
	port     int  // server's initial (well-known) port, e.g. 69
	tid      int  // adopted TID; equals port until firstSeen
	firstSeen bool
}

// newPeer resolves addr (v4 or v6 textual form) and port into a peer,
// mirroring original_source/tftp_client.cpp's set_ipv4/set_ipv6 dispatch.
func newPeer(addr string, port int) (*peer, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		ips, err := net.LookupIP(addr)
		if err != nil || len(ips) == 0 {
			return nil, fmt.Errorf("resolving address %q: %w", addr, err)
		}
		ip = ips[0]
	}

	network := "udp4"
	if ip.To4() == nil {
		network = "udp6"
	}

	return &peer{network: network, ip: ip, port: port, tid: port}, nil
}

// udpAddr returns the net.UDPAddr this peer currently expects traffic
// from/to: the configured IP and the adopted TID (or the initial port,
// before the first reply).
func (p *peer) udpAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: p.ip, Port: p.tid}
}

// initialAddr is the well-known request address, used when re-sending a
// request after an option-rejection resets the TID (spec.md §4.3).
func (p *peer) initialAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: p.ip, Port: p.port}
}

// resetTID clears the learned TID, forcing the next accept() to relearn
// it from scratch. Used only on the code-8 option-rejection retry.
func (p *peer) resetTID() {
	p.tid = p.port
	p.firstSeen = false
}

// acceptResult classifies an inbound datagram's source against the
// expected peer (spec.md §4.3).
type acceptResult int

const (
	// acceptOK: legitimate peer; proceed with this datagram.
	acceptOK acceptResult = iota
	// acceptUnknownTID: same IP, wrong port. Caller must send ERROR 5
	// to src and keep waiting on the legitimate peer.
	acceptUnknownTID
	// acceptWrongIP: different IP entirely. Silently dropped.
	acceptWrongIP
)

// accept validates the source of an inbound datagram against this peer,
// adopting src's port as the TID on the first legal reply.
func (p *peer) accept(src *net.UDPAddr) acceptResult {
	if !src.IP.Equal(p.ip) {
		return acceptWrongIP
	}

	if !p.firstSeen {
		p.firstSeen = true
		p.tid = src.Port
		return acceptOK
	}

	if src.Port != p.tid {
		return acceptUnknownTID
	}
	return acceptOK
}
