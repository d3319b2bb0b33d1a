// Package main is the entry point for mercury-sync CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/mercury-sync/cmd/mercury-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
