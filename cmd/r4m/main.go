// Command r4m logs Microsoft Rewards accounts in and keeps their sessions fresh.
package main

import (
	"os"

	"github.com/ibeckermayer/rewards4me/cmd/r4m/commands"
)

func main() {
	if err := commands.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
