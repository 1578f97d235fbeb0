// Package main provides the formrepl command.
package main

import (
	"os"

	"github.com/leapstack-labs/formrepl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
