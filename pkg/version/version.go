// Package version records the build version reported by the API.
package version

// Version is stamped at build time via -ldflags "-X comicvox/pkg/version.Version=...".
var Version = "dev"
