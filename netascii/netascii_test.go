package netascii

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, in []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	w := NewWriter(&out)
	_, err := w.Write(in)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	return out.Bytes()
}

func decodeAll(t *testing.T, wire []byte) []byte {
	t.Helper()
	r := NewReader(bytes.NewReader(wire))
	var out bytes.Buffer
	_, err := io.Copy(&out, r)
	require.NoError(t, err)
	return out.Bytes()
}

func TestWriter_ExpandsLFAndLoneCR(t *testing.T) {
	assert.Equal(t, []byte("a\r\nb"), encode(t, []byte("a\nb")))
	assert.Equal(t, []byte("a\r\x00b"), encode(t, []byte("a\rb")))
}

func TestWriter_TrailingCRFlushedAsNUL(t *testing.T) {
	assert.Equal(t, []byte("x\r\x00"), encode(t, []byte("x\r")))
}

func TestRoundTrip_ArbitraryBytesUnderLFOnly(t *testing.T) {
	in := []byte("line one\nline two\nline three")
	wire := encode(t, in)
	assert.Equal(t, in, decodeAll(t, wire))
}

func TestRoundTrip_EveryCRFollowedByLF(t *testing.T) {
	in := []byte("a\r\nb\r\nc")
	wire := encode(t, in)
	assert.Equal(t, in, decodeAll(t, wire))
}

func TestWriterSplitAcrossCalls_CRLFStraddlesWrite(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)
	_, err := w.Write([]byte("a\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("b"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	assert.Equal(t, []byte("a\r\nb"), out.Bytes())
}

func TestReaderSplitAcrossBlocks_CRResolvedByNextBlock(t *testing.T) {
	r := NewReader(nil)

	var buf [16]byte
	pushAndDrain := func(raw []byte, src *fixedReader) []byte {
		src.data = raw
		n, err := r.Read(buf[:])
		require.NoError(t, err)
		return buf[:n]
	}

	first := &fixedReader{data: []byte("ab\r")}
	r.r = first
	n, err := r.Read(buf[:])
	require.NoError(t, err)
	got := append([]byte{}, buf[:n]...)
	assert.Equal(t, []byte("ab"), got)
	assert.True(t, r.PendingCR())

	second := &fixedReader{}
	r.r = second
	got = append(got, pushAndDrain([]byte("\nc"), second)...)
	assert.Equal(t, []byte("ab\nc"), got)
	assert.False(t, r.PendingCR())
}

func TestReader_ProtocolErrorOnBareCRFollower(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("a\rb")))
	_, err := io.Copy(io.Discard, r)
	assert.Error(t, err)
}

func TestPendingCR_TrueWhenStreamEndsOnLoneCR(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("ab\r")))
	// io.Copy reports EOF as nil, so read directly to see the EOF.
	var buf [16]byte
	_, err := r.Read(buf[:])
	require.NoError(t, err)
	_, err = r.Read(buf[:])
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, r.PendingCR())
}

// fixedReader hands back data once, then io.EOF, simulating the
// staging buffer (rawRxBuffer) a session drains between DATA blocks: EOF
// here means "nothing buffered right now", not "stream is over".
type fixedReader struct {
	data []byte
	done bool
}

func (f *fixedReader) Read(p []byte) (int, error) {
	if f.done || len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	f.done = true
	return n, nil
}
