// Package version reports the scribe build.
//
// Version, commit and build time are set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/scribe/version.Version=0.3.0" ./cmd/scribe
//
// Unset values fall back to the VCS stamp in the binary's build info.
package version
