// Copyright (C) 2017 Kale Blankenship. All rights reserved.
// This software may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details

package tftp

import "fmt"

// Transfer couples the session state machine to its caller (spec.md
// §2's "thin request orchestrator"): validate the request, run the
// session to completion, and report the outcome.
func Transfer(req Request) (Stats, error) {
	if err := req.Validate(); err != nil {
		return Stats{}, err
	}

	s, err := newSession(req)
	if err != nil {
		fmt.Println("Transfer didn't complete successfully!")
		return Stats{}, err
	}

	stats, err := s.run()
	if err != nil {
		s.log.err("transfer failed: %v", err)
		fmt.Println("Transfer didn't complete successfully!")
		return stats, err
	}

	s.log.debug("transfer completed without errors")
	fmt.Println("Transfer completed without errors.")
	return stats, nil
}

// Get retrieves remoteFile from addr:port, writing it locally under
// its own last path segment (spec.md §6).
func Get(addr string, port int, remoteFile string, mode TransferMode) (Stats, error) {
	return Transfer(Request{
		Direction: Read,
		Filename:  remoteFile,
		Mode:      mode,
		Address:   addr,
		Port:      port,
	})
}

// Put sends localFile to addr:port under the same name.
func Put(addr string, port int, localFile string, mode TransferMode) (Stats, error) {
	return Transfer(Request{
		Direction: Write,
		Filename:  localFile,
		Mode:      mode,
		Address:   addr,
		Port:      port,
	})
}
