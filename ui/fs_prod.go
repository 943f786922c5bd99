//go:build !debug

package ui

import "embed"

//go:embed dist
var distFS embed.FS

// DistFS returns the client bundle baked into the release binary at build
// time. A missing dist/ directory fails the build rather than the request.
func DistFS() embed.FS {
	return distFS
}
