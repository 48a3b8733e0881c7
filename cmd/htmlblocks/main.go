// Package main is the entry point for the htmlblocks CLI.
package main

import (
	"os"

	"github.com/jmylchreest/htmlblocks/cmd/htmlblocks/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
