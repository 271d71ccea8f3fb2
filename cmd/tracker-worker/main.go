// Command tracker-worker keeps a Google Sheets mirror of the ledger up to
// date from ledger events and a resync schedule.
package main

import (
	"os"

	"tracker/internal/cli"
)

func main() {
	os.Exit(cli.RunWorker(os.Args[1:], os.Stdout, os.Stderr))
}
