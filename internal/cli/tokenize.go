// Package cli implements the line-oriented console the interactive
// client reads commands from, and the flag surface a transfer command
// line is parsed into.
package cli

import "strings"

// Tokenize splits a console line into whitespace-separated fields,
// mirroring the original parser's "\s+" split.
func Tokenize(line string) []string {
	return strings.Fields(line)
}
