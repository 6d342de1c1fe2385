package main

import (
	"fmt"
	"os"

	"splitbite/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "splitbite:", err)
		os.Exit(1)
	}
}
