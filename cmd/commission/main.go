/*
main.go - Application entry point

EXAMPLES:
  # Run the API with a file database
  commission serve --db ./data/commission.db

  # Run with an in-memory database on another port
  commission serve --db :memory: --port 3000

  # One-off report from an accounting export
  commission calc --sales ban-hang-thang-3.csv --format csv --out bao-cao.csv

SEE ALSO:
  - cli/root.go: Command tree
  - config/config.go: Configuration sources
*/
package main

import (
	"os"

	"github.com/warp/commission-engine/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
