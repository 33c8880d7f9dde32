package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/ochairo/appguard/internal/domain-adapters/gateways"
)

func runProfile(_ context.Context, args []string) {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: appguard profile <embedded.mobileprovision>

Print the team, distribution channel and validity of a provisioning profile.
The CMS signature is not verified.
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(exitUsage)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: profile path is required\n\n")
		fs.Usage()
		os.Exit(exitUsage)
	}

	if err := executeProfile(os.Stdout, fs.Arg(0), time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}

func executeProfile(w io.Writer, path string, now time.Time) error {
	//nolint:gosec // G304: operator-supplied profile path
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	profile, err := gateways.ParseProvisioningProfile(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "name:       %s\n", profile.Name)
	fmt.Fprintf(w, "uuid:       %s\n", profile.UUID)
	fmt.Fprintf(w, "app id:     %s\n", profile.AppIDName)
	fmt.Fprintf(w, "team:       %s (%s)\n", profile.Token, profile.TeamName)
	fmt.Fprintf(w, "channel:    %s\n", profile.Channel())
	fmt.Fprintf(w, "devices:    %d\n", len(profile.ProvisionedDevices))
	if !profile.ExpirationDate.IsZero() {
		expiry := profile.ExpirationDate.UTC().Format(time.RFC3339)
		if profile.Expired(now) {
			expiry = color.RedString("%s (expired)", expiry)
		}
		fmt.Fprintf(w, "expires:    %s\n", expiry)
	}
	return nil
}
