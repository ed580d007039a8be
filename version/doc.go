// Package version reports the spacekit build version.
//
// Applications vendoring spacekit get the module version from build info.
// Builds of this repository can override it via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/spacekit/version.Version=1.0.0"
package version
