// Copyright (C) 2017 Kale Blankenship. All rights reserved.
// This software may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details

package tftp

import (
	"errors"
	"fmt"
)

// ErrMaxRetries is returned when a receive times out after the session's
// hard deadline has passed. The deadline is armed once, when the session
// starts, and is not moved by legal replies.
var ErrMaxRetries = errors.New("tftp: hard deadline exceeded")

// ErrCRUnresolved is returned when a netascii stream ends on an
// unresolved CR (see netascii.Reader).
var ErrCRUnresolved = errors.New("tftp: netascii stream ended on unresolved CR")

// wrapError prefixes err with desc, preserving it for errors.Is/As.
func wrapError(err error, desc string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", desc, err)
}

// errUnexpectedDatagram is returned when a datagram has an opcode that
// isn't legal for the state the session is in.
type errUnexpectedDatagram struct {
	dg string
}

func (e *errUnexpectedDatagram) Error() string {
	return fmt.Sprintf("unexpected datagram: %s", e.dg)
}

// errRemoteError wraps an ERROR datagram the peer sent us.
type errRemoteError struct {
	code ErrorCode
	msg  string
}

func (e *errRemoteError) Error() string {
	return fmt.Sprintf("remote error: code %s, msg %q", e.code, e.msg)
}

// errParsingOption is returned when an option value fails to parse or
// fails validation against the value we proposed.
type errParsingOption struct {
	option string
	value  string
}

func (e *errParsingOption) Error() string {
	return fmt.Sprintf("invalid value %q for option %q", e.value, e.option)
}

// errBadOption is returned when the server OACKs an option we never
// proposed.
type errBadOption struct {
	option string
}

func (e *errBadOption) Error() string {
	return fmt.Sprintf("server acknowledged option %q we never proposed", e.option)
}
