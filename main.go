package main

import (
	"os"

	"github.com/fbrzx/dw-simulator/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
