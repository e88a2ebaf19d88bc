package main

import (
	"os"

	"tarediiran-industries.com/gtfs-board/internal/api/gtfs_api"
)

func main() {
	os.Exit(gtfs_api.Main(os.Args[0], os.Args[1:], os.Stdout, os.Stderr))
}
