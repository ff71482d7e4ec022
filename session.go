// Copyright (C) 2017 Kale Blankenship. All rights reserved.
// This software may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details

package tftp

import (
	"fmt"
	"net"
	"os"

	"github.com/xsuran07/ISA-project/netascii"
)

// stateFunc is one step of the session state machine; it returns the
// next step, or nil once the session has reached a terminal state.
type stateFunc func() stateFunc

// session drives one READ or WRITE transfer end to end (spec.md §4.6).
// It owns the UDP socket, the two wire buffers, the local file, and the
// netascii translator for the lifetime of a single transfer.
type session struct {
	req  Request
	role Direction

	peer      *peer
	transport *transport
	log       *logger

	send *datagram
	recv *datagram

	blockSize   int
	timeoutSecs int
	tsize       int64
	curSize     int64
	binary      bool

	optionsProposed  *options
	optionsConfirmed *options
	retriedBare      bool // true once the code-8 bare-retry has been used

	blockNum   uint16
	finalSent  bool // WRITE: the short/empty final DATA has gone out
	finalAcked bool

	lastOutbound     []byte
	lastOutboundAddr *net.UDPAddr
	lastOutboundOp   string
	lastErr          error

	file *os.File

	// WRITE: whole local file, netascii-encoded up front (spec.md §4.2 —
	// encoding the entire stream before slicing sidesteps bytes_left
	// bookkeeping entirely: a two-byte CR pair that lands on a block
	// boundary is simply split, its second byte opening the next block).
	txData []byte
	txPos  int

	// READ: raw DATA payloads accumulate here; the netascii decoder
	// drains it incrementally so a CR that lands on the last byte of one
	// block is resolved using the first byte of the next.
	rawRx *rawRxBuffer
	ncDec *netascii.Reader

	terminal bool
	success  bool
	err      error
}

// rawRxBuffer is the tiny growable byte queue DATA payloads are staged
// in for netascii decoding; it's a slice-backed FIFO rather than
// bytes.Buffer so drained bytes don't need to retain their capacity.
type rawRxBuffer struct {
	buf []byte
}

func (r *rawRxBuffer) push(b []byte) {
	r.buf = append(r.buf, b...)
}

func (r *rawRxBuffer) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		return 0, errEOFNoData
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

var errEOFNoData = fmt.Errorf("tftp: no data currently buffered")

// newSession builds a session for req. The local file is not opened
// yet — spec.md §5 requires the MTU check (and thus the final block
// size) to be settled before the file is touched.
func newSession(req Request) (*session, error) {
	p, err := newPeer(req.Address, req.port())
	if err != nil {
		return nil, err
	}

	t, err := newTransport(p.network)
	if err != nil {
		return nil, err
	}

	s := &session{
		req:       req,
		role:      req.Direction,
		peer:      p,
		transport: t,
		log:       newLogger(fmt.Sprintf("%s:%d", p.ip, p.port)),
		send:      newDatagram(),
		recv:      newDatagram(),
		binary:    req.Mode == ModeOctet,
	}

	blksize, warning := clampBlksizeToMTU(p.network, req.blksize())
	if warning != "" {
		fmt.Fprintln(os.Stderr, "tftp: warning:", warning)
	}
	s.req.Blksize = blksize
	s.blockSize = defaultBlksize
	s.timeoutSecs = retryInterval

	s.optionsProposed = proposeOptions(s.req)
	return s, nil
}

// run drives the session to completion and reports the outcome.
func (s *session) run() (Stats, error) {
	defer s.transport.close()
	defer func() {
		if s.file != nil {
			s.file.Close()
		}
	}()

	if err := s.openLocalFile(); err != nil {
		return Stats{}, err
	}

	s.transport.startDeadline()

	state := s.stateSendRequest
	for state != nil {
		state = state()
	}

	stats := Stats{BytesTransferred: s.curSize, BlockSize: s.blockSize}
	if s.optionsConfirmed != nil {
		stats.OptionsConfirmed = s.optionsConfirmed.vals
	}
	if !s.success {
		if s.err == nil {
			s.err = ErrMaxRetries
		}
		return stats, s.err
	}
	return stats, nil
}

func (s *session) openLocalFile() error {
	var err error
	if s.role == Read {
		s.file, err = os.Create(localFileName(s.req.Filename))
		s.rawRx = &rawRxBuffer{}
		s.ncDec = netascii.NewReader(s.rawRx)
		if err != nil {
			return wrapError(err, "creating local file")
		}
		// spec.md §4.5: for READ the client always proposes tsize=0 and
		// accepts whatever value the server confirms.
		if s.binary {
			s.req = s.req.WithTransferSize(0)
			s.optionsProposed = proposeOptions(s.req)
		}
		return nil
	}

	s.file, err = os.Open(s.req.Filename)
	if err != nil {
		return wrapError(err, "opening local file")
	}
	info, err := s.file.Stat()
	if err != nil {
		return wrapError(err, "stat local file")
	}
	raw, err := os.ReadFile(s.req.Filename)
	if err != nil {
		return wrapError(err, "reading local file")
	}
	if s.binary {
		s.txData = raw
	} else {
		s.txData = encodeNetascii(raw)
	}
	s.req = s.req.WithTransferSize(info.Size())
	s.optionsProposed = proposeOptions(s.req)
	return nil
}

// localFileName takes the last path segment, per spec.md §6.
func localFileName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func encodeNetascii(raw []byte) []byte {
	var out []byte
	buf := &sliceWriter{}
	w := netascii.NewWriter(buf)
	w.Write(raw)
	w.Flush()
	out = buf.b
	return out
}

type sliceWriter struct{ b []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// STATES

func (s *session) stateSendRequest() stateFunc {
	var err error
	if s.role == Read {
		err = s.send.writeRRQ(s.req.Filename, s.req.Mode, s.optionsProposed)
	} else {
		err = s.send.writeWRQ(s.req.Filename, s.req.Mode, s.optionsProposed)
	}
	if err != nil {
		return s.fail(err)
	}
	if s.role == Write {
		s.blockNum = 0
	} else {
		s.blockNum = 1
	}
	s.transmit(s.peer.initialAddr())
	return s.stateAwaitResponse
}

// stateAwaitResponse handles the reply to RRQ/WRQ: OACK, the
// "server ignored our options" fallback (DATA for READ, ACK for
// WRITE), ERROR 8 (bare retry), or any other ERROR.
func (s *session) stateAwaitResponse() stateFunc {
	dg, src, ok := s.receiveOne()
	if !ok {
		return s.afterTimeoutOrError(s.stateAwaitResponse)
	}

	switch result := s.peer.accept(src); result {
	case acceptWrongIP:
		return s.stateAwaitResponse
	case acceptUnknownTID:
		s.sendErrorTo(src, ErrCodeUnknownTransferID, "unknown transfer ID")
		return s.stateAwaitResponse
	}

	if err := dg.validate(); err != nil {
		return s.protocolViolation(err)
	}

	op, err := dg.opcode()
	if err != nil {
		return s.protocolViolation(err)
	}

	switch op {
	case opOACK:
		opts, err := dg.oackOptions()
		if err != nil {
			return s.protocolViolation(err)
		}
		confirmed, err := s.confirmOptions(opts)
		if err != nil {
			return s.protocolViolation(err)
		}
		s.optionsConfirmed = confirmed
		s.growBuffersForBlockSize()
		if s.role == Read {
			return s.stateSendAckZero
		}
		return s.stateSendFirstData

	case opDATA:
		if s.role != Read {
			return s.protocolViolation(fmt.Errorf("unexpected DATA on WRITE"))
		}
		// server ignored our options; treat as if no OACK was needed.
		s.optionsConfirmed = newOptions()
		return s.handleData(dg)

	case opACK:
		if s.role != Write {
			return s.protocolViolation(fmt.Errorf("unexpected ACK on READ"))
		}
		s.optionsConfirmed = newOptions()
		return s.handleAck(dg)

	case opERROR:
		return s.handleErrorReply(dg)

	default:
		return s.protocolViolation(fmt.Errorf("unexpected opcode %s", op))
	}
}

func (s *session) growBuffersForBlockSize() {
	size := s.blockSize + 4
	s.send.growTo(size)
	s.recv.growTo(size)
}

func (s *session) stateSendAckZero() stateFunc {
	if err := s.send.writeACK(0); err != nil {
		return s.fail(err)
	}
	s.transmit(s.peer.udpAddr())
	return s.stateAwaitData
}

func (s *session) stateSendFirstData() stateFunc {
	return s.sendDataBlock(1)
}

// stateAwaitData is AWAIT_DATA_n from spec.md §4.6.
func (s *session) stateAwaitData() stateFunc {
	dg, src, ok := s.receiveOne()
	if !ok {
		return s.afterTimeoutOrError(s.stateAwaitData)
	}

	switch result := s.peer.accept(src); result {
	case acceptWrongIP:
		return s.stateAwaitData
	case acceptUnknownTID:
		s.sendErrorTo(src, ErrCodeUnknownTransferID, "unknown transfer ID")
		return s.stateAwaitData
	}

	if err := dg.validate(); err != nil {
		return s.protocolViolation(err)
	}

	op, err := dg.opcode()
	if err != nil {
		return s.protocolViolation(err)
	}
	switch op {
	case opDATA:
		return s.handleData(dg)
	case opERROR:
		return s.handleErrorReply(dg)
	default:
		return s.protocolViolation(fmt.Errorf("unexpected opcode %s while awaiting DATA", op))
	}
}

// handleData implements the READ DATA branch of spec.md §4.6,
// including the duplicate-block re-ACK rule.
func (s *session) handleData(dg *datagram) stateFunc {
	block, err := dg.block()
	if err != nil {
		return s.protocolViolation(err)
	}
	if block == 0 {
		return s.protocolViolation(fmt.Errorf("illegal DATA block number 0"))
	}
	payload := dg.data()

	if block != s.blockNum {
		// duplicate or out-of-order: re-send the last ACK, stay.
		s.resendLastOutbound()
		return s.stateAwaitData
	}

	decoded, pending, err := s.decodeIncoming(payload)
	if err != nil {
		return s.protocolViolation(err)
	}
	if _, err := s.file.Write(decoded); err != nil {
		return s.fail(wrapError(err, "writing local file"))
	}
	s.curSize += int64(len(payload))

	final := len(payload) < s.blockSize
	if final && pending {
		return s.fail(ErrCRUnresolved)
	}

	if err := s.send.writeACK(block); err != nil {
		return s.fail(err)
	}
	s.transmit(s.peer.udpAddr())

	if final {
		s.success = true
		s.terminal = true
		return nil
	}

	s.blockNum = nextBlock(s.blockNum)
	return s.stateAwaitData
}

// decodeIncoming pushes payload into the raw staging buffer and drains
// everything the netascii decoder can currently produce. pending
// reports whether the decoder is sitting on an unresolved CR.
func (s *session) decodeIncoming(payload []byte) (decoded []byte, pending bool, err error) {
	if s.binary {
		return payload, false, nil
	}

	s.rawRx.push(payload)
	out := make([]byte, 0, len(payload))
	tmp := make([]byte, 256)
	for {
		n, rerr := s.ncDec.Read(tmp)
		out = append(out, tmp[:n]...)
		if rerr != nil {
			if rerr == errEOFNoData {
				break
			}
			return out, s.ncDec.PendingCR(), rerr
		}
		if n == 0 {
			break
		}
	}
	return out, s.ncDec.PendingCR(), nil
}

func (s *session) stateAwaitAck() stateFunc {
	dg, src, ok := s.receiveOne()
	if !ok {
		return s.afterTimeoutOrError(s.stateAwaitAck)
	}

	switch result := s.peer.accept(src); result {
	case acceptWrongIP:
		return s.stateAwaitAck
	case acceptUnknownTID:
		s.sendErrorTo(src, ErrCodeUnknownTransferID, "unknown transfer ID")
		return s.stateAwaitAck
	}

	if err := dg.validate(); err != nil {
		return s.protocolViolation(err)
	}

	op, err := dg.opcode()
	if err != nil {
		return s.protocolViolation(err)
	}
	switch op {
	case opACK:
		return s.handleAck(dg)
	case opERROR:
		return s.handleErrorReply(dg)
	default:
		return s.protocolViolation(fmt.Errorf("unexpected opcode %s while awaiting ACK", op))
	}
}

// handleAck implements the WRITE ACK branch of spec.md §4.6: a
// duplicate/old ACK is silently dropped, never advancing block_num.
func (s *session) handleAck(dg *datagram) stateFunc {
	block, err := dg.block()
	if err != nil {
		return s.protocolViolation(err)
	}
	if block != s.blockNum {
		return s.stateAwaitAck
	}

	if s.finalSent {
		s.success = true
		s.terminal = true
		return nil
	}

	return s.sendDataBlock(nextBlock(s.blockNum))
}

// sendDataBlock slices the next chunk out of the pre-encoded local
// file and sends it, setting finalSent once a short (or exactly-empty)
// final block has gone out.
func (s *session) sendDataBlock(block uint16) stateFunc {
	start := s.txPos
	end := start + s.blockSize
	if end > len(s.txData) {
		end = len(s.txData)
	}
	chunk := s.txData[start:end]
	s.txPos = end

	if err := s.send.writeDATA(block, chunk); err != nil {
		return s.fail(err)
	}
	s.blockNum = block
	s.curSize += int64(len(chunk))
	if len(chunk) < s.blockSize {
		s.finalSent = true
	}
	s.transmit(s.peer.udpAddr())
	return s.stateAwaitAck
}

func nextBlock(n uint16) uint16 {
	if n == 65535 {
		return 1
	}
	return n + 1
}

// handleErrorReply implements the code-8 recoverable path and the
// otherwise-fatal ERROR rule of spec.md §4.6/§7. Code 8 is recoverable
// only while the reply to the request is still awaited (no OACK, DATA
// or ACK accepted yet, so optionsConfirmed is still nil).
func (s *session) handleErrorReply(dg *datagram) stateFunc {
	code, _ := dg.errorCode()
	msg, _ := dg.errMsg()
	s.log.wire("Received", opERROR.String(), s.peer.udpAddr().String(), fmt.Sprintf("code: %d, msg: %s", code, msg))

	if code == ErrCodeBadOptions && s.optionsConfirmed == nil && s.optionsProposed.len() > 0 && !s.retriedBare {
		s.retriedBare = true
		s.peer.resetTID()
		s.optionsProposed = newOptions()
		s.log.debug("re-sending request without options after code-8 rejection")
		return s.stateSendRequest
	}

	return s.fail(&errRemoteError{code: code, msg: msg})
}

// protocolViolation implements spec.md §7 category 4: reply ERROR 4,
// then fail.
func (s *session) protocolViolation(cause error) stateFunc {
	s.sendErrorTo(s.peer.udpAddr(), ErrCodeIllegalOperation, cause.Error())
	return s.fail(cause)
}

// afterTimeoutOrError distinguishes the single-shot retry from the
// hard-deadline failure (spec.md §4.4/§7 category 3), and fatal
// transport errors (category 2). resume is the state to return to once
// the retransmit has gone out.
func (s *session) afterTimeoutOrError(resume stateFunc) stateFunc {
	if s.lastErr != nil {
		return s.fail(s.lastErr)
	}
	if s.transport.deadlineExpired() {
		return s.fail(ErrMaxRetries)
	}
	s.resendLastOutbound()
	return resume
}

func (s *session) resendLastOutbound() {
	if s.lastOutbound == nil {
		return
	}
	if err := s.transport.send(s.lastOutbound, s.lastOutboundAddr); err != nil {
		s.lastErr = err
		return
	}
	s.log.wire("Re-sent", s.lastOutboundOp, s.lastOutboundAddr.String(), "")
}

func (s *session) fail(err error) stateFunc {
	s.err = err
	s.terminal = true
	return nil
}

// transmit sends s.send to addr, remembering it for retransmission. The
// single-shot retry clock is restarted by each receive, not here.
func (s *session) transmit(addr *net.UDPAddr) {
	buf := append([]byte(nil), s.send.bytes()...)
	op, _ := s.send.opcode()
	if err := s.transport.send(buf, addr); err != nil {
		s.lastErr = err
		return
	}
	s.lastOutbound = buf
	s.lastOutboundAddr = addr
	s.lastOutboundOp = op.String()
	s.log.wire("Sent", op.String(), addr.String(), s.send.String())
}

func (s *session) sendErrorTo(addr *net.UDPAddr, code ErrorCode, msg string) {
	errDg := newDatagram()
	if err := errDg.writeERROR(code, msg); err != nil {
		return
	}
	_ = s.transport.send(errDg.bytes(), addr)
	s.log.wire("Sent", opERROR.String(), addr.String(), fmt.Sprintf("code: %d, msg: %s", code, msg))
}

// receiveOne blocks for up to the retry interval; ok is false on
// timeout or transport error (check s.lastErr to tell them apart).
func (s *session) receiveOne() (dg *datagram, src *net.UDPAddr, ok bool) {
	buf := make([]byte, len(s.recv.buf))
	n, addr, err := s.transport.receive(buf)
	if err != nil {
		if isTimeout(err) {
			s.lastErr = nil
			return nil, nil, false
		}
		s.lastErr = err
		return nil, nil, false
	}
	s.recv.buf = buf
	s.recv.setBytes(n)
	return s.recv, addr, true
}
