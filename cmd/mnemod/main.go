// Command mnemod runs the persistent semantic-memory store service.
package main

import (
	"fmt"
	"os"

	"github.com/nocturnewell/mnemo/cmd/mnemod/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
