package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ochairo/appguard/internal/domain/services"
)

func runObfuscate(_ context.Context, args []string) {
	fs := flag.NewFlagSet("obfuscate", flag.ExitOnError)
	var (
		keyHex  = fs.String("key-hex", "", "Plaintext key as hex")
		maskHex = fs.String("mask-hex", "", "Mask as hex (default: the built-in mask)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: appguard obfuscate --key-hex <hex> [options]

Print the Go byte-slice literal to embed for a key. The vault reverses
the transform at run time.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(exitUsage)
	}
	if *keyHex == "" {
		fmt.Fprintf(os.Stderr, "Error: --key-hex is required\n\n")
		fs.Usage()
		os.Exit(exitUsage)
	}

	if err := executeObfuscate(os.Stdout, *keyHex, *maskHex); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}

func executeObfuscate(w io.Writer, keyHex, maskHex string) error {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("key is empty")
	}

	mask := services.DefaultKeyMask
	if maskHex != "" {
		if mask, err = hex.DecodeString(strings.TrimSpace(maskHex)); err != nil {
			return fmt.Errorf("failed to decode mask: %w", err)
		}
		if len(mask) == 0 {
			return fmt.Errorf("mask is empty")
		}
	}

	fmt.Fprintln(w, "[]byte{")
	writeByteRows(w, services.Obfuscate(key, mask))
	fmt.Fprintln(w, "}")
	return nil
}

func writeByteRows(w io.Writer, data []byte) {
	const perRow = 12
	for start := 0; start < len(data); start += perRow {
		row := data[start:min(start+perRow, len(data))]
		parts := make([]string, len(row))
		for i, b := range row {
			parts[i] = fmt.Sprintf("0x%02x,", b)
		}
		fmt.Fprintf(w, "\t%s\n", strings.Join(parts, " "))
	}
}
