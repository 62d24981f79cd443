package main

import (
	"fmt"
	"os"

	"github.com/prometheas/zen-backup/internal/app"
	"github.com/prometheas/zen-backup/internal/output"
)

func main() {
	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, output.Failure("Error: "+err.Error()))
		os.Exit(1)
	}
}
