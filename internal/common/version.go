package common

// Set at build time with -ldflags "-X tarediiran-industries.com/gtfs-board/internal/common.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
)
