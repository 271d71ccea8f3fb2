// Command tracker serves the ledger over HTTP and runs one-shot ledger
// commands from the terminal.
package main

import (
	"os"

	"tracker/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
