// The main package for the linkboard executable.
package main

import (
	"os"

	"github.com/JakeFAU/linkboard/internal/cli"
)

// main defers all execution to the Cobra CLI.
func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
