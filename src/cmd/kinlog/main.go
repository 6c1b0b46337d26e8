// FILE: src/cmd/kinlog/main.go
package main

import (
	"fmt"
	"os"
	"slices"

	"kinlog/src/cmd/kinlog/commands"
)

func main() {
	ui.setQuiet(slices.Contains(os.Args[1:], "-q") || slices.Contains(os.Args[1:], "--quiet"))

	router := commands.NewCommandRouter()
	router.Register("send", newSendCommand())
	router.Register("receive", newReceiveCommand())

	handled, err := router.Route(os.Args)
	if err != nil {
		ui.fatal(1, "Error: %v\n", err)
	}
	if !handled {
		help, _ := router.GetCommand("help")
		if err := help.Execute(nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(2)
	}
}
