package main

import (
	"os"

	"github.com/mattsolo1/grove-forge/cmd/forge"
)

func main() {
	if err := forge.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
