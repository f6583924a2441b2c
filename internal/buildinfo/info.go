// Package buildinfo carries version identifiers stamped in via ldflags.
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
