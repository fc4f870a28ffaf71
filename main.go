package main

import (
	"os"

	"github.com/powersim/powersim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
