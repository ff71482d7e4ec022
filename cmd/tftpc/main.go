// Command tftpc is the interactive TFTP client: a line-oriented
// console that turns "-R|-W -d ... -a ..." commands into transfers.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	tftp "github.com/xsuran07/ISA-project"
	"github.com/xsuran07/ISA-project/internal/cli"
	"github.com/xsuran07/ISA-project/internal/config"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "tftpc",
		Short: "Interactive TFTP client (RFC 1350, 2347, 2348, 2349)",
		RunE:  runConsole,
	}
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace every exchanged packet")

	rootCmd.AddCommand(getCmd(), putCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runConsole(cmd *cobra.Command, args []string) error {
	if verbose {
		logrus.SetLevel(logrus.TraceLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tftpc: warning: failed to load config:", err)
	}

	run := func(req tftp.Request) (tftp.Stats, error) {
		return tftp.Transfer(applyDefaults(req, cfg.Defaults))
	}

	console := cli.NewConsole(os.Stdin, os.Stdout, run)
	console.RunLoop()
	return nil
}

// applyDefaults fills in fields the console command left at their zero
// value from the config file's persistent defaults.
func applyDefaults(req tftp.Request, d config.DefaultsConfig) tftp.Request {
	if req.Timeout == 0 && d.Timeout != nil {
		req.Timeout = *d.Timeout
	}
	if req.Blksize == 0 && d.Blksize != nil {
		req.Blksize = *d.Blksize
	}
	if req.Port == 0 && d.Port != nil {
		req.Port = *d.Port
	}
	return req
}

// getCmd/putCmd offer a non-interactive one-shot path alongside the
// console, for scripted use.
func getCmd() *cobra.Command {
	var addr string
	var port int
	var mode string

	cmd := &cobra.Command{
		Use:   "get <remote-file>",
		Short: "fetch a remote file (one-shot, non-interactive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := modeFromFlag(mode)
			if err != nil {
				return err
			}
			_, err = tftp.Get(addr, port, args[0], m)
			return err
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address")
	cmd.Flags().IntVarP(&port, "port", "p", 69, "server port")
	cmd.Flags().StringVarP(&mode, "mode", "c", "octet", "ascii|netascii|binary|octet")
	cmd.MarkFlagRequired("addr")
	return cmd
}

func putCmd() *cobra.Command {
	var addr string
	var port int
	var mode string

	cmd := &cobra.Command{
		Use:   "put <local-file>",
		Short: "send a local file (one-shot, non-interactive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := modeFromFlag(mode)
			if err != nil {
				return err
			}
			_, err = tftp.Put(addr, port, args[0], m)
			return err
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address")
	cmd.Flags().IntVarP(&port, "port", "p", 69, "server port")
	cmd.Flags().StringVarP(&mode, "mode", "c", "octet", "ascii|netascii|binary|octet")
	cmd.MarkFlagRequired("addr")
	return cmd
}

func modeFromFlag(m string) (tftp.TransferMode, error) {
	switch m {
	case "ascii", "netascii":
		return tftp.ModeNetASCII, nil
	case "binary", "octet":
		return tftp.ModeOctet, nil
	default:
		return "", fmt.Errorf("invalid mode %q", m)
	}
}
