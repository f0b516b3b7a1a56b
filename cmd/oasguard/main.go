package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/erraggy/oasguard/cmd/oasguard/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := commands.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, commands.ErrCheckFailed):
		return 1
	case errors.Is(err, commands.ErrUsage):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}
