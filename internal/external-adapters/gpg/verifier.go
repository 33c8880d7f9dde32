// Package gpg provides offline OpenPGP signature verification for policy files.
package gpg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ochairo/appguard/internal/domain/entities"
)

// SignatureSuffixes are the detached signature names tried next to a signed file, in order
var SignatureSuffixes = []string{".asc", ".sig"}

const armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE---"

// Verifier implements OpenPGP signature verification using ProtonMail's go-crypto.
// Keys are only ever read from local files; nothing is fetched.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a new verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyFromFile imports an armored or binary public key
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath comes from the policy configuration
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	return v.ImportKey(data)
}

// ImportKey imports an armored or binary public key held in memory
func (v *Verifier) ImportKey(data []byte) error {
	keys, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keys, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys found in file")
	}
	v.keyring = append(v.keyring, keys...)
	return nil
}

// VerifySignatureFromFile verifies a detached signature from a local file
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) error {
	//nolint:gosec // G304: sigPath sits next to the signed policy file
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:gosec // G304: filePath is the policy file being verified
	data, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer data.Close()

	return v.VerifyDetached(data, sig)
}

// VerifyDetached checks an armored or binary detached signature over data
func (v *Verifier) VerifyDetached(data io.Reader, sig []byte) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no keys imported, call ImportKeyFromFile first")
	}
	// signatures are well under 1KB; anything tiny cannot be one
	if len(sig) < 10 {
		return fmt.Errorf("signature file too small to be a valid signature")
	}

	var err error
	if bytes.HasPrefix(sig, []byte(armoredSignaturePrefix)) {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, data, bytes.NewReader(sig), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, data, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

// VerifyPolicyFile verifies filePath against its detached signature (filePath
// plus one of SignatureSuffixes) using the key in keyPath. Every failure wraps
// entities.ErrPolicySignature.
func VerifyPolicyFile(keyPath, filePath string) error {
	sigPath, err := FindSignature(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrPolicySignature, err)
	}
	v := NewVerifier()
	if err := v.ImportKeyFromFile(keyPath); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrPolicySignature, err)
	}
	if err := v.VerifySignatureFromFile(filePath, sigPath); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrPolicySignature, err)
	}
	return nil
}

// FindSignature returns the first existing detached signature for filePath
func FindSignature(filePath string) (string, error) {
	for _, suffix := range SignatureSuffixes {
		candidate := filePath + suffix
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no detached signature found for %s", filePath)
}
