package main

import (
	"fmt"
	"os"

	"github.com/hayeah/choosenext"
)

func main() {
	app, err := choosenext.InitApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing choose-next: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
