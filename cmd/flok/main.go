package main

import (
	"github.com/fluree-labs/flok/internal/cli"
)

func main() {
	// Version, Commit, BuildDate are defined in version.go
	cli.SetVersionInfo(Version, Commit, BuildDate)

	cli.Execute()
}
