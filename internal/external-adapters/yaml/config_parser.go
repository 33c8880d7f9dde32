// Package yaml provides YAML-based configuration parsing and repository implementations.
package yaml

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ochairo/appguard/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlConfig represents the raw YAML structure
type yamlConfig struct {
	Bundle  yamlBundle  `yaml:"bundle"`
	Policy  yamlPolicy  `yaml:"policy"`
	Probes  yamlProbes  `yaml:"probes"`
	Logging yamlLogging `yaml:"logging"`
}

type yamlBundle struct {
	Path                string `yaml:"path"`
	Executable          string `yaml:"executable"`
	InfoPlist           string `yaml:"info_plist"`
	ProvisioningProfile string `yaml:"provisioning_profile"`
}

type yamlPolicy struct {
	Encryption             string `yaml:"encryption" validate:"omitempty,oneof=strict channel-aware permissive"`
	ExpectedTeamIdentifier string `yaml:"expected_team_identifier" validate:"omitempty,len=10,alphanum,uppercase"`
	PublicKeyFile          string `yaml:"public_key_file"`
}

type yamlProbes struct {
	ForbiddenPaths         []string `yaml:"forbidden_paths" validate:"dive,startswith=/"`
	JailbreakArtifacts     []string `yaml:"jailbreak_artifacts" validate:"dive,startswith=/"`
	AllowedLibraryPrefixes []string `yaml:"allowed_library_prefixes" validate:"dive,startswith=/"`
	SuspiciousLibraries    []string `yaml:"suspicious_libraries" validate:"dive,required"`
	ForbiddenURLSchemes    []string `yaml:"forbidden_url_schemes" validate:"dive,required"`
	DebuggerProcesses      []string `yaml:"debugger_processes" validate:"dive,required"`
}

type yamlLogging struct {
	Level string `yaml:"level" validate:"omitempty,oneof=panic fatal error warn warning info debug trace"`
}

// ConfigParser parses YAML configuration files
type ConfigParser struct {
	validate *validator.Validate
}

// NewConfigParser creates a new YAML parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{validate: validator.New()}
}

// ParseFile parses a YAML configuration file into a GuardConfig entity
func (p *ConfigParser) ParseFile(filePath string) (*entities.GuardConfig, error) {
	//nolint:gosec // G304: filePath is the operator-selected configuration file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a GuardConfig. Unset fields keep their defaults.
func (p *ConfigParser) Parse(data []byte) (*entities.GuardConfig, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	raw.Logging.Level = strings.ToLower(raw.Logging.Level)
	if err := p.validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidConfig, err)
	}

	cfg := entities.DefaultGuardConfig()
	applyBundle(&cfg.Bundle, raw.Bundle)
	applyPolicy(&cfg.Policy, raw.Policy)
	cfg.Probes = entities.ProbeConfig{
		ForbiddenPaths:         raw.Probes.ForbiddenPaths,
		JailbreakArtifacts:     raw.Probes.JailbreakArtifacts,
		AllowedLibraryPrefixes: raw.Probes.AllowedLibraryPrefixes,
		SuspiciousLibraries:    raw.Probes.SuspiciousLibraries,
		ForbiddenURLSchemes:    raw.Probes.ForbiddenURLSchemes,
		DebuggerProcesses:      raw.Probes.DebuggerProcesses,
	}
	if raw.Logging.Level != "" {
		cfg.Logging.Level = raw.Logging.Level
	}

	return cfg, nil
}

func applyBundle(dst *entities.BundleConfig, src yamlBundle) {
	if src.Path != "" {
		dst.Path = src.Path
	}
	if src.Executable != "" {
		dst.Executable = src.Executable
	}
	if src.InfoPlist != "" {
		dst.InfoPlist = src.InfoPlist
	}
	if src.ProvisioningProfile != "" {
		dst.ProvisioningProfile = src.ProvisioningProfile
	}
}

func applyPolicy(dst *entities.PolicyConfig, src yamlPolicy) {
	if src.Encryption != "" {
		dst.Encryption = entities.EncryptionPolicy(src.Encryption)
	}
	dst.ExpectedTeamIdentifier = src.ExpectedTeamIdentifier
	dst.PublicKeyFile = src.PublicKeyFile
}
