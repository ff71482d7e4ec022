package tftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatagram_WriteReadRoundTrip(t *testing.T) {
	d := newDatagram()
	require.NoError(t, d.writeWord(uint16(opDATA)))
	require.NoError(t, d.writeWord(7))
	require.NoError(t, d.writeString("hello"))
	require.NoError(t, d.writeByte(0xFF))

	d.setBytes(d.woff)

	w, err := d.readWord()
	require.NoError(t, err)
	assert.Equal(t, uint16(opDATA), w)

	block, err := d.readWord()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), block)

	s, err := d.readString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	b, err := d.readByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), b)

	assert.True(t, d.atEnd())
}

func TestDatagram_WriteBeyondCapacityFails(t *testing.T) {
	// reset never shrinks the buffer, so build one whose capacity is 4.
	d := &datagram{buf: make([]byte, 4)}
	require.NoError(t, d.writeWord(1))
	require.NoError(t, d.writeWord(2))
	assert.ErrorIs(t, d.writeByte(3), errBufferFull)
}

func TestDatagram_ReadBeyondLengthFails(t *testing.T) {
	d := newDatagram()
	require.NoError(t, d.writeWord(1))
	d.setBytes(d.woff)

	_, err := d.readWord()
	require.NoError(t, err)

	_, err = d.readByte()
	assert.ErrorIs(t, err, errBufferShort)
}

func TestDatagram_GrowToPreservesContent(t *testing.T) {
	d := newDatagram()
	d.reset(2)
	require.NoError(t, d.writeWord(42))
	d.growTo(1024)
	assert.GreaterOrEqual(t, len(d.buf), 1024)
	assert.Equal(t, []byte{0, 42}, d.bytes())
}

func TestDatagram_RemainingIsUnreadTail(t *testing.T) {
	d := newDatagram()
	require.NoError(t, d.writeWord(uint16(opDATA)))
	require.NoError(t, d.writeWord(1))
	require.NoError(t, d.writeBytes([]byte("payload")))
	d.setBytes(d.woff)

	_, _ = d.readWord()
	_, _ = d.readWord()
	assert.Equal(t, []byte("payload"), d.remaining())
}
