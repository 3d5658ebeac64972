// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// UserAgent identifies churnsense to the inference endpoint, the model
// gateway and the history API.
func UserAgent() string {
	return "churnsense/" + Version
}

// BuildInfo describes the commit and build time, e.g. "(abc123, built 2026-01-02)".
func BuildInfo() string {
	return "(" + Sha + ", built " + Buildtime + ")"
}
