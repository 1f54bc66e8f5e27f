// Command promptlib renders prompts, browses the template catalog and moves
// whole libraries in and out of the persistence API.
package main

import (
	"fmt"
	"os"
)

// Set via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
