package tftp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeer_DetectsAddressFamily(t *testing.T) {
	v4, err := newPeer("127.0.0.1", 69)
	require.NoError(t, err)
	assert.Equal(t, "udp4", v4.network)

	v6, err := newPeer("::1", 69)
	require.NoError(t, err)
	assert.Equal(t, "udp6", v6.network)
}

func TestPeerAccept_FirstReplyAdoptsTID(t *testing.T) {
	p, err := newPeer("192.0.2.1", 69)
	require.NoError(t, err)

	src := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 54321}
	assert.Equal(t, acceptOK, p.accept(src))
	assert.Equal(t, 54321, p.tid)
}

func TestPeerAccept_WrongIPRejectedSilently(t *testing.T) {
	p, err := newPeer("192.0.2.1", 69)
	require.NoError(t, err)

	other := &net.UDPAddr{IP: net.ParseIP("192.0.2.99"), Port: 69}
	assert.Equal(t, acceptWrongIP, p.accept(other))
	assert.False(t, p.firstSeen)
}

func TestPeerAccept_UnknownTIDAfterFirstReply(t *testing.T) {
	p, err := newPeer("192.0.2.1", 69)
	require.NoError(t, err)

	legit := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1000}
	require.Equal(t, acceptOK, p.accept(legit))

	interloper := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 2000}
	assert.Equal(t, acceptUnknownTID, p.accept(interloper))

	// the legitimate peer's state must be untouched
	assert.Equal(t, 1000, p.tid)
}

func TestPeerResetTID_RelearnsFromScratch(t *testing.T) {
	p, err := newPeer("192.0.2.1", 69)
	require.NoError(t, err)

	first := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1000}
	require.Equal(t, acceptOK, p.accept(first))

	p.resetTID()
	assert.Equal(t, 69, p.tid)
	assert.False(t, p.firstSeen)

	second := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 2000}
	assert.Equal(t, acceptOK, p.accept(second))
	assert.Equal(t, 2000, p.tid)
}
