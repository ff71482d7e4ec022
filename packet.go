// Copyright (C) 2017 Kale Blankenship. All rights reserved.
// This software may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details

package tftp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// options is an ordered proposal/confirmation list: RFC 2347 doesn't
// require ordering, but keeping it deterministic makes logs and the
// OACK-echo invariant (spec.md §8) easy to test.
type options struct {
	keys []string
	vals map[string]string
}

func newOptions() *options {
	return &options{vals: make(map[string]string)}
}

func (o *options) set(key, val string) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = val
}

func (o *options) get(key string) (string, bool) {
	v, ok := o.vals[key]
	return v, ok
}

func (o *options) len() int {
	return len(o.keys)
}

func (o *options) String() string {
	parts := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, o.vals[k]))
	}
	return strings.Join(parts, ", ")
}

// sortedKeys returns a sorted copy of the option names. The packet
// writers do not use it: they emit options in insertion order (keys).
func (o *options) sortedKeys() []string {
	keys := append([]string(nil), o.keys...)
	sort.Strings(keys)
	return keys
}

// PACKET CONSTRUCTORS

func (d *datagram) writeRRQ(filename string, mode TransferMode, opts *options) error {
	return d.writeRequest(opRRQ, filename, mode, opts)
}

func (d *datagram) writeWRQ(filename string, mode TransferMode, opts *options) error {
	return d.writeRequest(opWRQ, filename, mode, opts)
}

func (d *datagram) writeRequest(op opcode, filename string, mode TransferMode, opts *options) error {
	size := sizeofOpcode + len(filename) + 1 + len(mode) + 1
	for _, k := range opts.keys {
		size += len(k) + 1 + len(opts.vals[k]) + 1
	}
	d.reset(size)

	if err := d.writeWord(uint16(op)); err != nil {
		return err
	}
	if err := d.writeString(filename); err != nil {
		return err
	}
	if err := d.writeString(strings.ToLower(string(mode))); err != nil {
		return err
	}
	for _, k := range opts.keys {
		if err := d.writeOption(k, opts.vals[k]); err != nil {
			return err
		}
	}
	return nil
}

func (d *datagram) writeOption(name, val string) error {
	if err := d.writeString(name); err != nil {
		return err
	}
	return d.writeString(val)
}

func (d *datagram) writeDATA(block uint16, payload []byte) error {
	d.reset(sizeofDataHdr + len(payload))
	if err := d.writeWord(uint16(opDATA)); err != nil {
		return err
	}
	if err := d.writeWord(block); err != nil {
		return err
	}
	return d.writeBytes(payload)
}

func (d *datagram) writeACK(block uint16) error {
	d.reset(sizeofDataHdr)
	if err := d.writeWord(uint16(opACK)); err != nil {
		return err
	}
	return d.writeWord(block)
}

func (d *datagram) writeERROR(code ErrorCode, msg string) error {
	d.reset(sizeofErrHdr + len(msg) + 1)
	if err := d.writeWord(uint16(opERROR)); err != nil {
		return err
	}
	if err := d.writeWord(uint16(code)); err != nil {
		return err
	}
	return d.writeString(msg)
}

func (d *datagram) writeOACK(opts *options) error {
	size := sizeofOpcode
	for _, k := range opts.keys {
		size += len(k) + 1 + len(opts.vals[k]) + 1
	}
	d.reset(size)
	if err := d.writeWord(uint16(opOACK)); err != nil {
		return err
	}
	for _, k := range opts.keys {
		if err := d.writeOption(k, opts.vals[k]); err != nil {
			return err
		}
	}
	return nil
}

// PACKET ACCESSORS (read side; call setBytes first)

func (d *datagram) opcode() (opcode, error) {
	d.roff = 0
	w, err := d.readWord()
	return opcode(w), err
}

func (d *datagram) block() (uint16, error) {
	save := d.roff
	d.roff = sizeofOpcode
	b, err := d.readWord()
	if err != nil {
		d.roff = save
	}
	return b, err
}

// data returns the DATA payload; call after block().
func (d *datagram) data() []byte {
	d.roff = sizeofDataHdr
	return d.remaining()
}

func (d *datagram) errorCode() (ErrorCode, error) {
	d.roff = sizeofOpcode
	w, err := d.readWord()
	return ErrorCode(w), err
}

func (d *datagram) errMsg() (string, error) {
	d.roff = sizeofErrHdr
	return d.readString()
}

func (d *datagram) filename() (string, error) {
	d.roff = sizeofOpcode
	return d.readString()
}

func (d *datagram) mode() (TransferMode, error) {
	d.roff = sizeofOpcode
	if _, err := d.readString(); err != nil {
		return "", err
	}
	m, err := d.readString()
	if err != nil {
		return "", err
	}
	switch strings.ToLower(m) {
	case string(ModeOctet):
		return ModeOctet, nil
	case string(ModeNetASCII):
		return ModeNetASCII, nil
	default:
		return "", fmt.Errorf("invalid transfer mode %q", m)
	}
}

// requestOptions parses the option list trailing an RRQ/WRQ's mode
// field. Call after mode().
func (d *datagram) requestOptions() (*options, error) {
	opts := newOptions()
	for !d.atEnd() {
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		val, err := d.readString()
		if err != nil {
			return nil, err
		}
		opts.set(strings.ToLower(name), val)
	}
	return opts, nil
}

// oackOptions parses an OACK's option list.
func (d *datagram) oackOptions() (*options, error) {
	d.roff = sizeofOpcode
	opts := newOptions()
	for !d.atEnd() {
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		val, err := d.readString()
		if err != nil {
			return nil, err
		}
		opts.set(strings.ToLower(name), val)
	}
	return opts, nil
}

// String renders a datagram for logging, mirroring the teacher's
// datagram.String() switch over opcode.
func (d *datagram) String() string {
	op, err := d.opcode()
	if err != nil {
		return fmt.Sprintf("INVALID_DATAGRAM[%v]", err)
	}
	switch op {
	case opRRQ, opWRQ:
		fn, _ := d.filename()
		return fmt.Sprintf("%s[filename=%q]", op, fn)
	case opDATA:
		blk, _ := d.block()
		return fmt.Sprintf("%s[block=%d, len=%d]", op, blk, len(d.data()))
	case opACK:
		blk, _ := d.block()
		return fmt.Sprintf("%s[block=%d]", op, blk)
	case opOACK:
		opts, _ := d.oackOptions()
		return fmt.Sprintf("%s[%s]", op, opts)
	case opERROR:
		code, _ := d.errorCode()
		msg, _ := d.errMsg()
		return fmt.Sprintf("%s[code=%s, msg=%q]", op, code, msg)
	default:
		return op.String()
	}
}

// validate enforces the framing rules of spec.md §4.5: NUL-terminated
// strings, no trailing bytes after ACK/ERROR, well-formed block numbers.
func (d *datagram) validate() error {
	if d.n < sizeofOpcode {
		return fmt.Errorf("datagram shorter than an opcode")
	}
	op, err := d.opcode()
	if err != nil {
		return err
	}
	switch op {
	case opRRQ, opWRQ:
		if d.n == 0 || d.buf[d.n-1] != 0 {
			return fmt.Errorf("%s not NUL-terminated", op)
		}
	case opDATA:
		if d.n < sizeofDataHdr {
			return fmt.Errorf("DATA shorter than header")
		}
	case opACK:
		if d.n != sizeofDataHdr {
			return fmt.Errorf("ACK has trailing bytes")
		}
	case opERROR:
		if d.n < sizeofErrHdr+1 || d.buf[d.n-1] != 0 {
			return fmt.Errorf("ERROR malformed or not NUL-terminated")
		}
	case opOACK:
		if d.n == 0 || d.buf[d.n-1] != 0 {
			return fmt.Errorf("OACK not NUL-terminated")
		}
	default:
		return fmt.Errorf("unknown opcode %d", uint16(op))
	}
	return nil
}

func parseUint8Option(val string) (uint64, error) {
	return strconv.ParseUint(val, 10, 32)
}
