package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	orchestrators "github.com/ochairo/appguard/internal/domain-orchestrators"
)

func runCheck(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "Configuration file (default: appguard.yml in the bundle)")
		bundleDir  = fs.String("bundle", "", "Application bundle directory (default: directory of the running executable)")
		quit       = fs.Bool("quit", false, "Terminate silently when the environment is untrusted")
		verbose    = fs.Bool("verbose", false, "Log the tripped signal at debug level")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: appguard check [options]

Evaluate the executable image, signing identity and environment probes
and report a single verdict. Exits 0 when legitimate, 3 when not.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  appguard check
  appguard check --bundle /var/containers/Bundle/Application/X/Moon.app --quit
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(exitUsage)
	}

	opts := wiringOptions{configPath: *configPath, bundleDir: *bundleDir, verbose: *verbose}
	bridge := orchestrators.NewBridge(newRuntime(opts), nil)
	os.Exit(executeCheck(ctx, os.Stdout, bridge, *quit))
}

func executeCheck(ctx context.Context, w io.Writer, bridge *orchestrators.Bridge, quit bool) int {
	if bridge.IsAppLegitimate(ctx) {
		//nolint:errcheck // Best-effort terminal output
		color.New(color.FgGreen, color.Bold).Fprintln(w, "LEGITIMATE")
		return exitOK
	}
	if quit {
		bridge.SilentQuit(ctx)
	}
	//nolint:errcheck // Best-effort terminal output
	color.New(color.FgRed, color.Bold).Fprintln(w, "NOT LEGITIMATE")
	return exitUntrusted
}
