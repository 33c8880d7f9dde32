package services

import (
	"crypto/ecdh"

	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces/services"
)

// obfuscatedServerKey is the server identity key (uncompressed P-256 point) after Obfuscate
var obfuscatedServerKey = []byte{
	0xd3, 0x85, 0xe8, 0xd7, 0x36, 0x7c, 0xa8, 0x93, 0x4d, 0xeb, 0x07, 0xe1,
	0xf9, 0x53, 0xf7, 0xf8, 0x00, 0xba, 0x68, 0xec, 0x24, 0x27, 0xe9, 0xc6,
	0x08, 0xda, 0x3c, 0x64, 0x5c, 0x32, 0xca, 0x8c, 0x90, 0xf6, 0xef, 0x58,
	0x3b, 0xe5, 0x5f, 0x8c, 0x43, 0xa6, 0x3d, 0x87, 0x4f, 0x3d, 0xda, 0x84,
	0x84, 0x44, 0x23, 0xd3, 0xeb, 0x0a, 0x52, 0x90, 0xb4, 0xc7, 0xea, 0x5b,
	0x2c, 0x81, 0xde, 0x88, 0x62,
}

// DefaultKeyMask is the mask the default key was obfuscated with
var DefaultKeyMask = []byte{
	0x3c, 0x9a, 0x51, 0xe7, 0x08, 0x4f, 0xd2, 0xb6, 0xa1, 0x19, 0x7e, 0x43,
	0xc0, 0x5d, 0x8b, 0x2f,
}

// keyVault recovers the embedded secret. It never consults the verdict.
type keyVault struct {
	obfuscated []byte
	mask       []byte
}

// NewKeyVault creates a vault over an obfuscated constant and its mask
func NewKeyVault(obfuscated, mask []byte) services.KeyVault {
	return &keyVault{
		obfuscated: append([]byte(nil), obfuscated...),
		mask:       append([]byte(nil), mask...),
	}
}

// NewDefaultKeyVault creates a vault over the embedded server identity key
func NewDefaultKeyVault() services.KeyVault {
	return NewKeyVault(obfuscatedServerKey, DefaultKeyMask)
}

// GetSecureServerKey returns a fresh plaintext copy on every call
func (v *keyVault) GetSecureServerKey() []byte {
	return Reveal(v.obfuscated, v.mask)
}

// ServerIdentityKey returns the key only when it decodes as a P-256 public key
func (v *keyVault) ServerIdentityKey() entities.Optional[[]byte] {
	key := v.GetSecureServerKey()
	if _, err := ecdh.P256().NewPublicKey(key); err != nil {
		return entities.None[[]byte]()
	}
	return entities.Some(key)
}

// Reveal undoes Obfuscate: the input is reversed, then unmasked with the
// repeating mask and a position-dependent byte.
func Reveal(obfuscated, mask []byte) []byte {
	n := len(obfuscated)
	out := make([]byte, n)
	for i := range out {
		out[i] = obfuscated[n-1-i] ^ maskByte(mask, i) ^ positionByte(i)
	}
	return out
}

// Obfuscate is the build-time inverse of Reveal
func Obfuscate(plain, mask []byte) []byte {
	n := len(plain)
	out := make([]byte, n)
	for i, b := range plain {
		out[n-1-i] = b ^ maskByte(mask, i) ^ positionByte(i)
	}
	return out
}

func maskByte(mask []byte, i int) byte {
	if len(mask) == 0 {
		return 0
	}
	return mask[i%len(mask)]
}

func positionByte(i int) byte {
	//nolint:gosec // G115: truncation to a byte is the transform
	return byte(i*0x1f + 0x5a)
}
