package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/goIntake/internal/cmd"
)

// Set through ldflags, e.g.
// go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2024-01-01"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "goIntake: %v\n", err)
		os.Exit(1)
	}
}
