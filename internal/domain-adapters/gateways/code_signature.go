package gateways

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ochairo/appguard/internal/domain/entities"
)

// Code signature blob magics. Code signature structures are always big-endian.
const (
	csMagicCodeDirectory     uint32 = 0xfade0c02
	csMagicEmbeddedSignature uint32 = 0xfade0cc0
	csMagicEntitlements      uint32 = 0xfade7171
)

// SuperBlob slot types
const (
	csSlotCodeDirectory          uint32 = 0
	csSlotEntitlements           uint32 = 5
	csSlotAlternateCodeDirectory uint32 = 0x1000
	csSlotAlternateCodeDirMax    uint32 = csSlotAlternateCodeDirectory + 5
)

const (
	csBlobHeaderSize      = 8
	csSuperBlobHeaderSize = 12
	csBlobIndexSize       = 8

	// CodeDirectory versions that carry the team identifier offset
	csSupportsTeamID = 0x20200
	csTeamOffsetPos  = 48
	csIdentOffsetPos = 20

	maxCodeSignatureSize = 16 << 20
)

// codeSignature holds the identity facts extracted from an embedded signature
type codeSignature struct {
	identifier   string
	teamID       string
	entitlements []byte
}

// parseCodeSignature parses an embedded-signature SuperBlob
func parseCodeSignature(data []byte) (*codeSignature, error) {
	blobs, err := parseSuperBlob(data)
	if err != nil {
		return nil, err
	}

	cs := &codeSignature{}

	cd, ok := blobs[csSlotCodeDirectory]
	if !ok {
		for slot := csSlotAlternateCodeDirectory; slot < csSlotAlternateCodeDirMax; slot++ {
			if alt, found := blobs[slot]; found {
				cd, ok = alt, true
				break
			}
		}
	}
	if ok {
		if err := cs.readCodeDirectory(cd); err != nil {
			return nil, err
		}
	}

	if ents, found := blobs[csSlotEntitlements]; found {
		if binary.BigEndian.Uint32(ents) != csMagicEntitlements {
			return nil, fmt.Errorf("%w: entitlements slot has magic %#x", entities.ErrMalformedImage, binary.BigEndian.Uint32(ents))
		}
		cs.entitlements = ents[csBlobHeaderSize:]
	}

	return cs, nil
}

// parseSuperBlob validates the index and returns each blob (header included) by slot type
func parseSuperBlob(data []byte) (map[uint32][]byte, error) {
	if len(data) < csSuperBlobHeaderSize {
		return nil, fmt.Errorf("%w: code signature too short", entities.ErrMalformedImage)
	}
	if magic := binary.BigEndian.Uint32(data); magic != csMagicEmbeddedSignature {
		return nil, fmt.Errorf("%w: unexpected code signature magic %#x", entities.ErrMalformedImage, magic)
	}
	length := uint64(binary.BigEndian.Uint32(data[4:]))
	if length < csSuperBlobHeaderSize || length > uint64(len(data)) {
		return nil, fmt.Errorf("%w: super blob length %d exceeds %d bytes", entities.ErrMalformedImage, length, len(data))
	}
	data = data[:length]

	count := uint64(binary.BigEndian.Uint32(data[8:]))
	indexEnd := csSuperBlobHeaderSize + csBlobIndexSize*count
	if indexEnd > length {
		return nil, fmt.Errorf("%w: super blob index for %d blobs overruns signature", entities.ErrMalformedImage, count)
	}

	blobs := make(map[uint32][]byte, count)
	for i := uint64(0); i < count; i++ {
		entry := data[csSuperBlobHeaderSize+i*csBlobIndexSize:]
		slot := binary.BigEndian.Uint32(entry)
		offset := uint64(binary.BigEndian.Uint32(entry[4:]))

		if offset < indexEnd || offset+csBlobHeaderSize > length {
			return nil, fmt.Errorf("%w: blob offset %d out of bounds", entities.ErrMalformedImage, offset)
		}
		size := uint64(binary.BigEndian.Uint32(data[offset+4:]))
		if size < csBlobHeaderSize || offset+size > length {
			return nil, fmt.Errorf("%w: blob at offset %d has invalid size %d", entities.ErrMalformedImage, offset, size)
		}
		if _, dup := blobs[slot]; dup {
			return nil, fmt.Errorf("%w: duplicate blob slot %#x", entities.ErrMalformedImage, slot)
		}
		blobs[slot] = data[offset : offset+size]
	}

	return blobs, nil
}

func (cs *codeSignature) readCodeDirectory(cd []byte) error {
	if binary.BigEndian.Uint32(cd) != csMagicCodeDirectory {
		return fmt.Errorf("%w: code directory has magic %#x", entities.ErrMalformedImage, binary.BigEndian.Uint32(cd))
	}
	if len(cd) < csIdentOffsetPos+4 {
		return fmt.Errorf("%w: code directory too short", entities.ErrMalformedImage)
	}

	ident, err := cString(cd, binary.BigEndian.Uint32(cd[csIdentOffsetPos:]))
	if err != nil {
		return err
	}
	cs.identifier = ident

	version := binary.BigEndian.Uint32(cd[8:])
	if version >= csSupportsTeamID && len(cd) >= csTeamOffsetPos+4 {
		team, err := cString(cd, binary.BigEndian.Uint32(cd[csTeamOffsetPos:]))
		if err != nil {
			return err
		}
		cs.teamID = team
	}
	return nil
}

// cString reads a NUL-terminated string at off. Offset zero means the field is unset.
func cString(b []byte, off uint32) (string, error) {
	if off == 0 {
		return "", nil
	}
	if uint64(off) >= uint64(len(b)) {
		return "", fmt.Errorf("%w: string offset %d out of bounds", entities.ErrMalformedImage, off)
	}
	end := bytes.IndexByte(b[off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", entities.ErrMalformedImage, off)
	}
	return string(b[off : int(off)+end]), nil
}
