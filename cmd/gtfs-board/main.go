package main

import (
	"os"

	"tarediiran-industries.com/gtfs-board/internal/web/gtfs_board"
)

func main() {
	os.Exit(gtfs_board.Main(os.Args[0], os.Args[1:], os.Stdout, os.Stderr))
}
