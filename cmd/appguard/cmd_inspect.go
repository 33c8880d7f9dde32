package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/ochairo/appguard/internal/domain-adapters/gateways"
	"github.com/ochairo/appguard/internal/domain/entities"
)

func runInspect(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var (
		verbose = fs.Bool("verbose", false, "List every load command")
		digest  = fs.String("sha256", "", "Fail unless the file has this SHA-256 (hex)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: appguard inspect <binary> [options]

Print the link-edit offset, encryption descriptor, build platform and
signing identity token of a Mach-O (or universal) binary. Exits 3 when
the image structure has been tampered with.

Options must precede the binary path.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(exitUsage)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: binary path is required\n\n")
		fs.Usage()
		os.Exit(exitUsage)
	}

	if err := executeInspect(ctx, os.Stdout, fs.Arg(0), *digest, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(inspectExitCode(err))
	}
}

// inspectExitCode reports a tampered image structure as untrusted rather than as a tool failure
func inspectExitCode(err error) int {
	if gateways.IsMalformedImage(err) {
		return exitUntrusted
	}
	return exitError
}

func executeInspect(ctx context.Context, w io.Writer, binaryPath, expectedDigest string, verbose bool) error {
	source := gateways.NewFileImageSource(binaryPath)
	if expectedDigest != "" {
		if err := gateways.VerifyImageDigest(source, expectedDigest); err != nil {
			return err
		}
	}
	inspector := gateways.NewMachOInspector(source)

	image, err := inspector.Inspect(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", binaryPath, err)
	}
	token, err := inspector.ExtractSigningIdentityToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract signing identity: %w", err)
	}
	identifier, err := inspector.SigningIdentifier(ctx)
	if err != nil {
		return fmt.Errorf("failed to read signing identifier: %w", err)
	}
	sum, err := gateways.ImageDigest(source)
	if err != nil {
		return err
	}
	libs, err := inspector.LinkedLibraries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list linked libraries: %w", err)
	}

	bold := color.New(color.Bold)
	//nolint:errcheck // Best-effort terminal output
	bold.Fprintf(w, "%s\n", image.Path)
	fmt.Fprintf(w, "  sha256:           %s\n", sum)
	fmt.Fprintf(w, "  cpu:              %s\n", image.CPU)
	fmt.Fprintf(w, "  platform:         %s\n", image.Platform)
	fmt.Fprintf(w, "  link-edit offset: %#x\n", image.LinkEditOffset)
	fmt.Fprintf(w, "  encryption:       %s\n", describeEncryption(image.Encryption))
	if sig, ok := image.CodeSignature.Get(); ok {
		fmt.Fprintf(w, "  code signature:   %#x (+%d bytes)\n", sig.Offset, sig.Size)
	} else {
		fmt.Fprintf(w, "  code signature:   %s\n", color.YellowString("none"))
	}
	fmt.Fprintf(w, "  identifier:       %s\n", identifier.OrElse(entities.UnknownField))
	if t, ok := token.Get(); ok {
		fmt.Fprintf(w, "  team identifier:  %s\n", t)
	} else {
		fmt.Fprintf(w, "  team identifier:  %s\n", color.RedString("absent"))
	}

	fmt.Fprintf(w, "  linked libraries: %d\n", len(libs))

	if verbose {
		for _, lib := range libs {
			fmt.Fprintf(w, "    %s\n", lib)
		}
		fmt.Fprintf(w, "  load commands (%d):\n", len(image.LoadCommands))
		for i, lc := range image.LoadCommands {
			fmt.Fprintf(w, "    %3d  cmd %#04x  %d bytes\n", i, lc.Kind, len(lc.Payload))
		}
	}
	return nil
}

func describeEncryption(info entities.EncryptionInfo) string {
	switch {
	case !info.Present:
		return color.RedString("descriptor missing")
	case info.Encrypted():
		return color.GreenString("encrypted (cryptid %d, %#x +%d)", info.CryptID, info.Range.Offset, info.Range.Size)
	default:
		return color.YellowString("not encrypted (cryptid 0)")
	}
}
