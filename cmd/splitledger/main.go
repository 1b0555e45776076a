// Package main is the entry point for the splitledger CLI.
package main

import (
	"os"

	"github.com/mmynk/splitledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
