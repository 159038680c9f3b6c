package main

import (
	"fmt"
	"os"

	"github.com/AlexKimmel/askgate/internal/cmd"
)

// Set via ldflags: -X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2025-10-28
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "askgate:", err)
		os.Exit(1)
	}
}
