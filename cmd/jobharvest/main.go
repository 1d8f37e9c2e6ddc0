// Command jobharvest harvests job listings from Workday careers sites into CSV.
package main

import (
	"fmt"
	"os"

	"github.com/ka2n/jobharvest/api"
	"github.com/ka2n/jobharvest/cli"
	"github.com/ka2n/jobharvest/log"
	"github.com/morikuni/failure/v2"
)

func main() {
	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", api.ErrorMessage(err))
		if code, ok := failure.CodeOf(err); ok {
			log.Debug("error details", "code", code, "error", err)
		}
		os.Exit(1)
	}
}
