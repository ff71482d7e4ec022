package cli

import (
	"bufio"
	"fmt"
	"io"
	"runtime"
	"time"

	tftp "github.com/xsuran07/ISA-project"
)

// PrintHelp prints the command summary for the "help" command.
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, "Usage:\n"+
		"		>>> help -------------------------------------- this text\n"+
		"		>>> quit -------------------------------------- exit\n"+
		"		>>> -R|-W -d /path/file [-t N] [-s N]\n"+
		"		           [-c ascii|netascii|binary|octet]\n"+
		"		           [-a addr[,port]] [-m] ------ -------- run a transfer\n")
}

// Runner executes a parsed transfer request; production code passes
// tftp.Transfer, tests pass a stub.
type Runner func(tftp.Request) (tftp.Stats, error)

// Console is the interactive line-oriented REPL spec.md §1 describes.
type Console struct {
	in     *bufio.Scanner
	out    io.Writer
	run    Runner
	banner bool
}

// NewConsole wraps in/out for the REPL loop.
func NewConsole(in io.Reader, out io.Writer, run Runner) *Console {
	return &Console{in: bufio.NewScanner(in), out: out, run: run}
}

// RunLoop reads lines until "quit" or EOF on input, dispatching each
// recognized transfer command to run.
func (c *Console) RunLoop() {
	fmt.Fprintln(c.out, "tftp client ("+time.Now().Format(time.UnixDate)+")")
	fmt.Fprintln(c.out, "["+runtime.GOOS+" "+runtime.GOARCH+"]")
	fmt.Fprintln(c.out, `Type "help" for more information.`)

	for {
		fmt.Fprint(c.out, "\n>>> ")
		if !c.in.Scan() {
			return
		}
		line := c.in.Text()

		kind, req, err := ParseLine(line)
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
			continue
		}

		switch kind {
		case Empty:
			continue
		case Help:
			PrintHelp(c.out)
		case Quit:
			return
		case Transfer:
			if _, err := c.run(req); err != nil {
				fmt.Fprintln(c.out, "error:", err)
			}
		case Invalid:
			fmt.Fprintln(c.out, `unrecognized command, type "help" for usage`)
		}
	}
}
