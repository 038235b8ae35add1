package main

import (
	"os"

	"bitchat/cmd/bitchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
