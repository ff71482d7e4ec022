// Copyright (C) 2017 Kale Blankenship. All rights reserved.
// This software may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details

package tftp

import "strconv"

// proposeOptions builds the option list a Request asks the server for
// (spec.md §3 "options_proposed", §4.5). Only options whose value
// differs from the wire default are sent, matching RFC 2347's "don't
// send what you don't need" convention.
func proposeOptions(req Request) *options {
	opts := newOptions()

	if req.Blksize != 0 && req.Blksize != defaultBlksize {
		opts.set(optBlksize, strconv.Itoa(req.Blksize))
	}
	if req.Timeout != 0 {
		opts.set(optTimeout, strconv.Itoa(req.Timeout))
	}
	if req.Mode == ModeOctet && req.wantTsize {
		opts.set(optTsize, strconv.FormatInt(req.tsize, 10))
	}

	return opts
}

// confirmOptions validates the server's OACK against what we proposed
// (spec.md §4.5's "OACK options must all have been proposed", "timeout
// values must match byte-exact") and applies the confirmed values to
// the session. Returns the subset actually confirmed.
func (s *session) confirmOptions(oack *options) (*options, error) {
	confirmed := newOptions()

	for _, k := range oack.keys {
		val := oack.vals[k]
		proposedVal, wasProposed := s.optionsProposed.get(k)
		if !wasProposed {
			return nil, &errBadOption{option: k}
		}

		switch k {
		case optBlksize:
			n, err := parseUint8Option(val)
			if err != nil || n < minBlksize || n > uint64(mustAtoi(proposedVal)) {
				return nil, &errParsingOption{option: k, value: val}
			}
			s.blockSize = int(n)
		case optTimeout:
			if val != proposedVal {
				return nil, &errParsingOption{option: k, value: val}
			}
			n, err := parseUint8Option(val)
			if err != nil || n < minTimeout || n > maxTimeout {
				return nil, &errParsingOption{option: k, value: val}
			}
			s.timeoutSecs = int(n)
		case optTsize:
			if _, err := parseUint8Option(val); err != nil {
				return nil, &errParsingOption{option: k, value: val}
			}
			s.tsize = mustAtoi64(val)
		default:
			return nil, &errParsingOption{option: k, value: val}
		}

		confirmed.set(k, val)
	}

	s.optionsConfirmed = confirmed
	return confirmed, nil
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func mustAtoi64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
