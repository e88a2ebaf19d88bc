package main

import (
	"os"

	"tarediiran-industries.com/gtfs-board/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
