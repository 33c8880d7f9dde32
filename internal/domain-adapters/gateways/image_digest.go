package gateways

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// ImageDigest returns the hex SHA-256 of the whole image, universal wrapper included
func ImageDigest(source ImageSource) (string, error) {
	r, size, closer, err := source.Open()
	if err != nil {
		return "", err
	}
	//nolint:errcheck // Defer close on read-only image
	defer closer.Close()

	h := sha256.New()
	if _, err := io.Copy(h, io.NewSectionReader(r, 0, size)); err != nil {
		return "", fmt.Errorf("failed to hash image: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyImageDigest compares the image against an expected SHA-256 (hex, any case)
func VerifyImageDigest(source ImageSource, expected string) error {
	actual, err := ImageDigest(source)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
