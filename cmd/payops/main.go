package main

import (
	"os"

	"github.com/payops-dev/payops/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
