package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	orchestrators "github.com/ochairo/appguard/internal/domain-orchestrators"
)

func runMetadata(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("metadata", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "Configuration file (default: appguard.yml in the bundle)")
		bundleDir  = fs.String("bundle", "", "Application bundle directory (default: directory of the running executable)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: appguard metadata [options]

Print the bundle identifier, team identifier, version and display name.
Unavailable fields print as "unknown".

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(exitUsage)
	}

	bridge := orchestrators.NewBridge(newRuntime(wiringOptions{configPath: *configPath, bundleDir: *bundleDir}), nil)
	executeMetadata(ctx, os.Stdout, bridge)
}

func executeMetadata(ctx context.Context, w io.Writer, bridge *orchestrators.Bridge) {
	fmt.Fprintf(w, "bundle identifier: %s\n", bridge.GetBundleIdentifier(ctx))
	fmt.Fprintf(w, "team identifier:   %s\n", bridge.GetTeamIdentifier(ctx))
	fmt.Fprintf(w, "version:           %s\n", bridge.GetVersion(ctx))
	fmt.Fprintf(w, "name:              %s\n", bridge.GetBundleName(ctx))
}
