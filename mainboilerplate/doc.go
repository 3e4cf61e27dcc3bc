// Package mainboilerplate contains shared boilerplate for programs of this
// project: logging, layered configuration, command registration and
// diagnostics. Methods are narrowly scoped, so that programs may use only
// those they need.
package mainboilerplate

var (
	// Version of the program, set at build time with
	// -ldflags "-X go.arnest.dev/scan/mainboilerplate.Version=...".
	Version = "development"
	// BuildDate of the program, set at build time.
	BuildDate = "unknown"
)
