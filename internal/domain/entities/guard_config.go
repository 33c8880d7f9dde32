package entities

import "errors"

var (
	// ErrInvalidConfig is returned for configuration that fails validation
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrPolicySignature is returned when a signed policy cannot be verified
	ErrPolicySignature = errors.New("policy signature verification failed")
)

// GuardConfig is the runtime configuration of the integrity engine
type GuardConfig struct {
	Bundle  BundleConfig
	Policy  PolicyConfig
	Probes  ProbeConfig
	Logging LoggingConfig
}

// BundleConfig locates the application bundle. Empty fields resolve from the running executable.
type BundleConfig struct {
	Path                string
	Executable          string
	InfoPlist           string
	ProvisioningProfile string
}

// PolicyConfig holds verdict policy decisions
type PolicyConfig struct {
	Encryption             EncryptionPolicy
	ExpectedTeamIdentifier string // optional pin on the binary token
	PublicKeyFile          string // when set, the config file must carry a detached signature
}

// ProbeConfig extends the built-in probe catalogs
type ProbeConfig struct {
	ForbiddenPaths         []string
	JailbreakArtifacts     []string
	AllowedLibraryPrefixes []string
	SuspiciousLibraries    []string
	ForbiddenURLSchemes    []string
	DebuggerProcesses      []string
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level string
}

// DefaultGuardConfig returns the configuration used when no file is present
func DefaultGuardConfig() *GuardConfig {
	return &GuardConfig{
		Bundle: BundleConfig{
			InfoPlist:           "Info.plist",
			ProvisioningProfile: DefaultProvisioningProfile,
		},
		Policy: PolicyConfig{
			Encryption: EncryptionChannelAware,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
