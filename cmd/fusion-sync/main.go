package main

import (
	"os"
)

var version = "dev"

func main() {
	err := NewRootCmd().Execute()
	// PersistentPostRun is skipped when a command fails
	closeApp()
	if err != nil {
		os.Exit(1)
	}
}
