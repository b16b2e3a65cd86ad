package main

import (
	"os"

	"github.com/durach/gromit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
