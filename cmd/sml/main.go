package main

import (
	"os"

	"sml/cmd/sml/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
