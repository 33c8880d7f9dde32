package main

import (
	"context"
	"fmt"
	"os"
)

// Exit codes
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitUntrusted = 3
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitUsage)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "check":
		runCheck(ctx, os.Args[2:])
	case "inspect":
		runInspect(ctx, os.Args[2:])
	case "metadata":
		runMetadata(ctx, os.Args[2:])
	case "obfuscate":
		runObfuscate(ctx, os.Args[2:])
	case "profile":
		runProfile(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(exitUsage)
	}
}

func printUsage() {
	fmt.Println(`appguard - Runtime integrity and anti-tamper verification

Usage:
  appguard <command> [options]

Commands:
  check       Evaluate whether the current environment is trustworthy
  inspect     Dump the executable image facts of a Mach-O binary
  metadata    Print the bundle identity fields
  obfuscate   Produce the obfuscated literal for an embedded key
  profile     Print the facts of a provisioning profile

Use "appguard <command> --help" for more information about a command.`)
}
