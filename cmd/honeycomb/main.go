package main

import (
	"os"

	"github.com/SaketSinghRajput/honeycomb/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
