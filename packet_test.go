package tftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRRQ_ParsesBack(t *testing.T) {
	d := newDatagram()
	opts := newOptions()
	opts.set(optBlksize, "1024")

	require.NoError(t, d.writeRRQ("/tmp/file.txt", ModeOctet, opts))
	d.setBytes(d.woff)

	op, err := d.opcode()
	require.NoError(t, err)
	assert.Equal(t, opRRQ, op)

	fn, err := d.filename()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/file.txt", fn)

	mode, err := d.mode()
	require.NoError(t, err)
	assert.Equal(t, ModeOctet, mode)

	got, err := d.requestOptions()
	require.NoError(t, err)
	v, ok := got.get(optBlksize)
	require.True(t, ok)
	assert.Equal(t, "1024", v)
}

func TestWriteDATA_BlockAndPayloadParseBack(t *testing.T) {
	d := newDatagram()
	require.NoError(t, d.writeDATA(3, []byte("abc")))
	d.setBytes(d.woff)

	block, err := d.block()
	require.NoError(t, err)
	assert.Equal(t, uint16(3), block)
	assert.Equal(t, []byte("abc"), d.data())
}

func TestWriteACK_NoTrailingBytes(t *testing.T) {
	d := newDatagram()
	require.NoError(t, d.writeACK(5))
	d.setBytes(d.woff)
	require.NoError(t, d.validate())

	block, err := d.block()
	require.NoError(t, err)
	assert.Equal(t, uint16(5), block)
}

func TestWriteERROR_RoundTrip(t *testing.T) {
	d := newDatagram()
	require.NoError(t, d.writeERROR(ErrCodeFileNotFound, "nope"))
	d.setBytes(d.woff)
	require.NoError(t, d.validate())

	code, err := d.errorCode()
	require.NoError(t, err)
	assert.Equal(t, ErrCodeFileNotFound, code)

	msg, err := d.errMsg()
	require.NoError(t, err)
	assert.Equal(t, "nope", msg)
}

func TestOACKOptions_EchoesProposed(t *testing.T) {
	proposed := newOptions()
	proposed.set(optBlksize, "1400")
	proposed.set(optTimeout, "3")

	d := newDatagram()
	require.NoError(t, d.writeOACK(proposed))
	d.setBytes(d.woff)

	got, err := d.oackOptions()
	require.NoError(t, err)
	assert.Equal(t, proposed.vals, got.vals)
}

func TestValidate_RejectsTrailingBytesOnACK(t *testing.T) {
	d := newDatagram()
	require.NoError(t, d.writeACK(1))
	require.NoError(t, d.writeByte(0)) // corrupt: trailing byte
	d.setBytes(d.woff)
	assert.Error(t, d.validate())
}

func TestValidate_RejectsUnterminatedRequest(t *testing.T) {
	d := newDatagram()
	d.reset(4)
	require.NoError(t, d.writeWord(uint16(opRRQ)))
	require.NoError(t, d.writeByte('a')) // no NUL terminator
	d.setBytes(d.woff)
	assert.Error(t, d.validate())
}

func TestDatagramString_DoesNotPanicPerOpcode(t *testing.T) {
	cases := []func() *datagram{
		func() *datagram {
			d := newDatagram()
			_ = d.writeRRQ("f", ModeOctet, newOptions())
			d.setBytes(d.woff)
			return d
		},
		func() *datagram {
			d := newDatagram()
			_ = d.writeDATA(1, []byte("x"))
			d.setBytes(d.woff)
			return d
		},
		func() *datagram {
			d := newDatagram()
			_ = d.writeACK(1)
			d.setBytes(d.woff)
			return d
		},
		func() *datagram {
			d := newDatagram()
			_ = d.writeERROR(ErrCodeNotDefined, "x")
			d.setBytes(d.woff)
			return d
		},
		func() *datagram {
			d := newDatagram()
			_ = d.writeOACK(newOptions())
			d.setBytes(d.woff)
			return d
		},
	}
	for _, build := range cases {
		assert.NotPanics(t, func() { _ = build().String() })
	}
}
