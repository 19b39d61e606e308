// Package main is the viewlineage command.
package main

import (
	"os"

	"github.com/leapstack-labs/viewlineage/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
