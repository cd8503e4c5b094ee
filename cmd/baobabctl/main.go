// Command baobabctl runs scenario projections and comparisons locally.
package main

import (
	"fmt"
	"os"

	"github.com/opensource-finance/baobab/internal/cli"
)

// Version information (set via ldflags)
var Version = "dev"

func main() {
	if err := cli.NewRootCmd(Version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
