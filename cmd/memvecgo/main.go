// Package main provides the entry point for the memvecgo CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/memvecgo/cmd/memvecgo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
