// Copyright (C) 2017 Kale Blankenship. All rights reserved.
// This software may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details

package tftp

import (
	"net"
	"time"
)

// transport owns the UDP socket for a session: a single sendto, a
// blocking recvfrom bounded by the fixed 5s receive timeout, and the
// hard deadline clock (spec.md §4.4).
type transport struct {
	conn    *net.UDPConn
	network string

	hardDeadline time.Time
}

// newTransport opens a UDP socket on network ("udp4"/"udp6"), bound to
// an OS-chosen ephemeral local port as soon as it is opened.
func newTransport(network string) (*transport, error) {
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, wrapError(err, "opening udp socket")
	}
	return &transport{conn: conn, network: network}, nil
}

func (t *transport) close() error {
	return t.conn.Close()
}

// startDeadline arms the session's hard deadline, relative to now.
func (t *transport) startDeadline() {
	t.hardDeadline = time.Now().Add(time.Duration(hardDeadlineMultiplier*retryInterval+hardDeadlineSlack) * time.Second)
}

// deadlineExpired reports whether the hard deadline has passed.
func (t *transport) deadlineExpired() bool {
	return !t.hardDeadline.IsZero() && time.Now().After(t.hardDeadline)
}

// send transmits buf to addr. Treated as atomic per spec.md §5.
func (t *transport) send(buf []byte, addr *net.UDPAddr) error {
	_, err := t.conn.WriteToUDP(buf, addr)
	return wrapError(err, "sendto")
}

// receive blocks for up to the single-shot retry interval (5s),
// returning the datagram's length and source address, or a timeout
// error the caller recognizes with isTimeout.
func (t *transport) receive(buf []byte) (int, *net.UDPAddr, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(retryInterval * time.Second)); err != nil {
		return 0, nil, wrapError(err, "setting read deadline")
	}
	n, addr, err := t.conn.ReadFromUDP(buf)
	return n, addr, err
}

// isTimeout reports whether err is the expected single-shot receive
// timeout (as opposed to a fatal transport error, spec.md §7 category 2).
func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
