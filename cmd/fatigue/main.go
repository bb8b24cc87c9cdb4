// ABOUTME: Entry point for fatigue CLI.
// ABOUTME: Invokes the root Cobra command.
package main

import (
	"fmt"
	"os"
)

func main() {
	err := rootCmd.Execute()
	// PostRun is skipped when a command fails.
	if cerr := teardown(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
