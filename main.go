// Command rewards4me runs the login scheduler in the foreground. It is
// shorthand for "r4m schedule" and accepts the same flags.
package main

import (
	"os"

	"github.com/ibeckermayer/rewards4me/cmd/r4m/commands"
)

func main() {
	if err := commands.Execute(append([]string{"schedule"}, os.Args[1:]...)); err != nil {
		os.Exit(1)
	}
}
