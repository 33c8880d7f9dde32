package yaml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces"
	"github.com/ochairo/appguard/internal/domain/interfaces/repositories"
)

// ConfigEnv overrides the configuration file path
const ConfigEnv = "APPGUARD_CONFIG"

// DefaultConfigFile is looked up in the bundle directory when no path is given
const DefaultConfigFile = "appguard.yml"

// SignatureVerifier checks a detached signature of filePath against the key in keyPath
type SignatureVerifier func(keyPath, filePath string) error

// ConfigRepository implements repositories.ConfigRepository using a YAML file
type ConfigRepository struct {
	path     string
	parser   *ConfigParser
	verifier SignatureVerifier
	logger   interfaces.Logger
}

// NewConfigRepository creates a repository for the file at path. APPGUARD_CONFIG,
// when set, takes precedence. verifier may be nil when signed policies are not used.
func NewConfigRepository(path string, verifier SignatureVerifier, logger interfaces.Logger) *ConfigRepository {
	if env := os.Getenv(ConfigEnv); env != "" {
		path = env
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ConfigRepository{
		path:     path,
		parser:   NewConfigParser(),
		verifier: verifier,
		logger:   logger,
	}
}

// Path returns the configuration file the repository reads
func (r *ConfigRepository) Path() string {
	return r.path
}

// LoadConfig returns defaults when the file does not exist
func (r *ConfigRepository) LoadConfig(_ context.Context) (*entities.GuardConfig, error) {
	if r.path == "" {
		return entities.DefaultGuardConfig(), nil
	}
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("no configuration file, using defaults", interfaces.F("path", r.path))
		return entities.DefaultGuardConfig(), nil
	}

	cfg, err := r.parser.ParseFile(r.path)
	if err != nil {
		return nil, err
	}

	if key := cfg.Policy.PublicKeyFile; key != "" {
		if !filepath.IsAbs(key) {
			key = filepath.Join(filepath.Dir(r.path), key)
			cfg.Policy.PublicKeyFile = key
		}
		if r.verifier == nil {
			return nil, fmt.Errorf("%w: no verifier for signed policy", entities.ErrPolicySignature)
		}
		if err := r.verifier(key, r.path); err != nil {
			return nil, err
		}
		r.logger.Debug("policy signature verified", interfaces.F("path", r.path))
	}

	return cfg, nil
}

var _ repositories.ConfigRepository = (*ConfigRepository)(nil)
