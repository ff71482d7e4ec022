package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	tftp "github.com/xsuran07/ISA-project"
)

// CommandType classifies one console line, extending the original
// parser's HELP/QUIT/INVALID enum with Transfer.
type CommandType int

const (
	Invalid CommandType = iota
	Empty
	Help
	Quit
	Transfer
)

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

var _ io.Writer = noopWriter{}

// ParseLine tokenizes and classifies one console line. For a Transfer
// command, req is fully populated and ready for tftp.Transfer.
func ParseLine(line string) (CommandType, tftp.Request, error) {
	fields := Tokenize(line)
	if len(fields) == 0 {
		return Empty, tftp.Request{}, nil
	}

	switch strings.ToLower(fields[0]) {
	case "help":
		if len(fields) != 1 {
			return Invalid, tftp.Request{}, fmt.Errorf("help takes no arguments")
		}
		return Help, tftp.Request{}, nil
	case "quit":
		if len(fields) != 1 {
			return Invalid, tftp.Request{}, fmt.Errorf("quit takes no arguments")
		}
		return Quit, tftp.Request{}, nil
	}

	if !strings.HasPrefix(fields[0], "-") {
		return Invalid, tftp.Request{}, nil
	}

	req, err := parseTransferFlags(fields)
	if err != nil {
		return Invalid, tftp.Request{}, err
	}
	return Transfer, req, nil
}

// parseTransferFlags implements the
// -R|-W -d /path/file [-t N] [-s N] [-c ascii|netascii|binary|octet]
// [-a addr[,port]] [-m] surface (spec.md §6).
func parseTransferFlags(fields []string) (tftp.Request, error) {
	fs := pflag.NewFlagSet("transfer", pflag.ContinueOnError)
	fs.SetOutput(noopWriter{})

	read := fs.BoolP("read", "R", false, "read (get) transfer")
	write := fs.BoolP("write", "W", false, "write (put) transfer")
	dest := fs.StringP("dest", "d", "", "remote file path")
	timeout := fs.IntP("timeout", "t", 0, "proposed timeout in seconds")
	blksize := fs.IntP("size", "s", 0, "proposed block size in bytes")
	mode := fs.StringP("mode", "c", "octet", "ascii|netascii|binary|octet")
	addr := fs.StringP("addr", "a", "", "server address[,port]")
	fs.BoolP("multicast", "m", false, "accepted for syntactic compatibility, has no effect")

	if err := fs.Parse(fields); err != nil {
		return tftp.Request{}, err
	}

	if *read == *write {
		return tftp.Request{}, fmt.Errorf("exactly one of -R or -W is required")
	}
	if *dest == "" {
		return tftp.Request{}, fmt.Errorf("-d is required")
	}
	if *addr == "" {
		return tftp.Request{}, fmt.Errorf("-a is required")
	}

	transferMode, err := parseMode(*mode)
	if err != nil {
		return tftp.Request{}, err
	}

	host, port, err := splitAddrPort(*addr)
	if err != nil {
		return tftp.Request{}, err
	}

	direction := tftp.Read
	if *write {
		direction = tftp.Write
	}

	req := tftp.Request{
		Direction: direction,
		Filename:  *dest,
		Mode:      transferMode,
		Timeout:   *timeout,
		Blksize:   *blksize,
		Address:   host,
		Port:      port,
	}
	return req, nil
}

func parseMode(m string) (tftp.TransferMode, error) {
	switch strings.ToLower(m) {
	case "ascii", "netascii":
		return tftp.ModeNetASCII, nil
	case "binary", "octet":
		return tftp.ModeOctet, nil
	default:
		return "", fmt.Errorf("invalid mode %q (want ascii|netascii|binary|octet)", m)
	}
}

// splitAddrPort parses "addr[,port]" (spec.md §6's -a syntax).
func splitAddrPort(s string) (string, int, error) {
	host, portStr, found := strings.Cut(s, ",")
	if !found {
		return host, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
