package entities

// UnknownField is reported for metadata that is unavailable
const UnknownField = "unknown"

// IdentityMetadata is a read-only snapshot of display/reporting identity.
// It is always available and never feeds the verdict.
type IdentityMetadata struct {
	BundleIdentifier string
	TeamIdentifier   string
	Version          string
	DisplayName      string
}

// BundleInfo contains the Info.plist keys the metadata reader uses
type BundleInfo struct {
	BundleIdentifier  string `plist:"CFBundleIdentifier"`
	ShortVersion      string `plist:"CFBundleShortVersionString"`
	BuildVersion      string `plist:"CFBundleVersion"`
	BundleName        string `plist:"CFBundleName"`
	BundleDisplayName string `plist:"CFBundleDisplayName"`
	Executable        string `plist:"CFBundleExecutable"`
}
