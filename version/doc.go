// Package version provides build version information embedding for
// featflow applications.
//
// Version, git commit, and build time are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/featflow/version.Version=1.0.0"
package version
