package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/appguard/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/appguard/internal/domain-orchestrators"
	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces"
	"github.com/ochairo/appguard/internal/domain/services"
	"github.com/ochairo/appguard/internal/external-adapters/gpg"
	"github.com/ochairo/appguard/internal/external-adapters/logrus"
	"github.com/ochairo/appguard/internal/external-adapters/yaml"
	"howett.net/plist"
)

const appName = "appguard"

// wiringOptions are the command-line overrides shared by the runtime-backed commands
type wiringOptions struct {
	configPath string
	bundleDir  string
	verbose    bool
}

// bundleLayout is the resolved location of every bundle file the engine reads
type bundleLayout struct {
	dir          string
	executable   string
	infoPlist    string
	provisioning string
}

// newRuntime creates the per-process runtime. Nothing is read until first use.
func newRuntime(opts wiringOptions) *orchestrators.Runtime {
	bootstrap := &interfaces.StdoutLogger{Out: os.Stderr, Verbose: opts.verbose}
	return orchestrators.NewRuntime(func(ctx context.Context) (*orchestrators.Components, error) {
		return buildComponents(ctx, opts, bootstrap)
	}, bootstrap)
}

func newLogger(opts wiringOptions, level string) interfaces.Logger {
	if opts.verbose {
		level = "debug"
	}
	return logrus.NewLogger(appName, level, os.Stderr)
}

func buildComponents(ctx context.Context, opts wiringOptions, bootstrap interfaces.Logger) (*orchestrators.Components, error) {
	cfg, err := loadConfig(ctx, opts, bootstrap)
	if err != nil {
		return nil, err
	}
	logger := newLogger(opts, cfg.Logging.Level)

	layout, err := resolveBundle(cfg, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("bundle resolved",
		interfaces.F("dir", layout.dir),
		interfaces.F("executable", layout.executable),
	)

	inspector := gateways.NewMachOInspector(gateways.NewFileImageSource(layout.executable))
	provisioning := gateways.NewProvisioningReader(layout.provisioning)
	platform := gateways.NewCompositePlatformGateway(inspector)
	registry := services.NewDefaultProbeRegistry(platform, inspector, cfg.Probes, layout.dir)
	logger.Debug("probes registered", interfaces.F("probes", strings.Join(registry.Names(), ",")))

	return &orchestrators.Components{
		Legitimacy: services.NewLegitimacyService(inspector, provisioning, registry, cfg.Policy, logger),
		Metadata: services.NewIdentityMetadataService(
			gateways.NewBundleInfoReader(layout.infoPlist),
			inspector,
			inspector,
			provisioning,
			logger,
		),
		Vault:    services.NewDefaultKeyVault(),
		Enforcer: services.NewEnforcer(nil),
	}, nil
}

// loadConfig runs before the configured logger exists and logs through bootstrap
func loadConfig(ctx context.Context, opts wiringOptions, bootstrap interfaces.Logger) (*entities.GuardConfig, error) {
	path := opts.configPath
	if path == "" {
		dir, err := defaultBundleDir(opts)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, yaml.DefaultConfigFile)
	}
	repo := yaml.NewConfigRepository(path, gpg.VerifyPolicyFile, bootstrap)
	cfg, err := repo.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func defaultBundleDir(opts wiringOptions) (string, error) {
	if opts.bundleDir != "" {
		return opts.bundleDir, nil
	}
	exe, err := runningExecutable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func runningExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// resolveBundle applies command-line overrides over the configured bundle layout.
// An overridden bundle without a configured executable takes CFBundleExecutable
// from its Info.plist, else the bundle name.
func resolveBundle(cfg *entities.GuardConfig, opts wiringOptions) (*bundleLayout, error) {
	dir := cfg.Bundle.Path
	if opts.bundleDir != "" {
		dir = opts.bundleDir
	}

	layout := &bundleLayout{}
	if dir == "" {
		exe, err := runningExecutable()
		if err != nil {
			return nil, err
		}
		layout.dir = filepath.Dir(exe)
		layout.executable = exe
	} else {
		layout.dir = dir
	}

	layout.infoPlist = filepath.Join(layout.dir, cfg.Bundle.InfoPlist)
	layout.provisioning = filepath.Join(layout.dir, cfg.Bundle.ProvisioningProfile)

	switch {
	case cfg.Bundle.Executable != "":
		layout.executable = filepath.Join(layout.dir, cfg.Bundle.Executable)
	case layout.executable == "":
		layout.executable = filepath.Join(layout.dir, bundleExecutableName(layout))
	}
	return layout, nil
}

func bundleExecutableName(layout *bundleLayout) string {
	//nolint:gosec // G304: Info.plist of the bundle under inspection
	if data, err := os.ReadFile(layout.infoPlist); err == nil {
		var info entities.BundleInfo
		if _, err := plist.Unmarshal(data, &info); err == nil && info.Executable != "" {
			return info.Executable
		}
	}
	return strings.TrimSuffix(filepath.Base(layout.dir), ".app")
}
