// Copyright (C) 2017 Kale Blankenship. All rights reserved.
// This software may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details

package tftp

import (
	"net"
	"strconv"
)

// udpOverhead is UDP(8) + TFTP header(4) + the largest IP header we
// budget for(60) that spec.md §6 subtracts from an interface's MTU to
// get the usable DATA payload residual.
const udpOverhead = 8 + 4 + 60

// clampBlksizeToMTU enumerates local interfaces matching network
// ("udp4"/"udp6"), takes their minimum MTU, and if proposed exceeds the
// resulting residual, returns the clamped value (never below
// minBlksize) plus a warning describing the override. A nil slice of
// interfaces (lookup failure) leaves proposed untouched.
func clampBlksizeToMTU(network string, proposed int) (blksize int, warning string) {
	ifaces, err := net.Interfaces()
	if err != nil || len(ifaces) == 0 {
		return proposed, ""
	}

	minMTU := 0
	for _, ifc := range ifaces {
		if ifc.MTU <= 0 {
			continue
		}
		if !hasFamilyAddr(ifc, network) {
			continue
		}
		if minMTU == 0 || ifc.MTU < minMTU {
			minMTU = ifc.MTU
		}
	}
	if minMTU == 0 {
		return proposed, ""
	}

	residual := minMTU - udpOverhead
	if residual < minBlksize {
		residual = minBlksize
	}
	if proposed <= residual {
		return proposed, ""
	}

	return residual, clampWarning(proposed, residual)
}

func hasFamilyAddr(ifc net.Interface, network string) bool {
	addrs, err := ifc.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		isV4 := ipNet.IP.To4() != nil
		if network == "udp4" && isV4 {
			return true
		}
		if network == "udp6" && !isV4 {
			return true
		}
	}
	return false
}

func clampWarning(proposed, residual int) string {
	return "blksize " + strconv.Itoa(proposed) + " exceeds interface MTU residual, using " + strconv.Itoa(residual)
}
