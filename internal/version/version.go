// ABOUTME: Version constants for the voicetutor client
// ABOUTME: Centralizes the product identity reported by the CLI
package version

const (
	// Product is the client product name.
	Product = "voicetutor"

	// Version is the client version.
	Version = "0.1.0"

	// Manufacturer identifies the vendor.
	Manufacturer = "Bactutor"
)
