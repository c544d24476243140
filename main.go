package main

import (
	"os"

	"github.com/matt-g-everett/trailcast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
