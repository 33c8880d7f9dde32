// Package fixtures assembles synthetic Mach-O images and provisioning profiles for tests.
package fixtures

import (
	"bytes"
	"debug/macho"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// Load command values written by the builder
const (
	lcLoadDylib        = 0xc
	lcSegment64        = 0x19
	lcCodeSignature    = 0x1d
	lcEncryptionInfo   = 0x21
	lcVersionMinIPhone = 0x25
	lcEncryptionInfo64 = 0x2c
	lcBuildVersion     = 0x32
	lcLoadWeakDylib    = 0x80000018
	lcRpath            = 0x8000001c

	headerSize64    = 32
	segmentCmdSize  = 72
	sectionSize64   = 80
	linkEditPadding = 16
)

// Encryption describes an LC_ENCRYPTION_INFO(_64) command
type Encryption struct {
	CryptID uint32
	Legacy  bool // write the 32-bit command kind
}

// Signature describes the embedded code signature
type Signature struct {
	Identifier   string
	TeamID       string
	Version      uint32 // CodeDirectory version; zero selects 0x20400
	Entitlements []byte // raw entitlements payload, omitted when nil
	Raw          []byte // replaces the generated SuperBlob entirely
}

// Image describes one synthetic 64-bit little-endian Mach-O executable
type Image struct {
	CPU                      macho.Cpu // zero selects arm64
	Encryption               *Encryption
	Platform                 uint32 // LC_BUILD_VERSION platform; zero omits the command
	MinVersionIPhoneOS       bool
	Signature                *Signature
	InfoPlist                []byte
	OmitLinkEdit             bool
	SignatureOutsideLinkEdit bool
	Dylibs                   []string // LC_LOAD_DYLIB install names
	WeakDylibs               []string // LC_LOAD_WEAK_DYLIB install names
	RPaths                   []string // LC_RPATH entries
}

// pathCommand is a load command carrying one NUL-terminated path after a fixed header
type pathCommand struct {
	kind   uint32
	header int
	path   string
}

func (c pathCommand) size() int {
	return align(c.header+len(c.path)+1, 8)
}

func (m Image) pathCommands() []pathCommand {
	var cmds []pathCommand
	for _, name := range m.Dylibs {
		cmds = append(cmds, pathCommand{kind: lcLoadDylib, header: 24, path: name})
	}
	for _, name := range m.WeakDylibs {
		cmds = append(cmds, pathCommand{kind: lcLoadWeakDylib, header: 24, path: name})
	}
	for _, p := range m.RPaths {
		cmds = append(cmds, pathCommand{kind: lcRpath, header: 12, path: p})
	}
	return cmds
}

// Build assembles the image
func (m Image) Build() []byte {
	cpu := m.CPU
	if cpu == 0 {
		cpu = macho.CpuArm64
	}
	le := binary.LittleEndian

	var sig []byte
	if m.Signature != nil {
		sig = m.Signature.superBlob()
	}

	textCmdSize := segmentCmdSize
	if m.InfoPlist != nil {
		textCmdSize += sectionSize64
	}
	cmdSizes := []int{textCmdSize}
	if m.Encryption != nil {
		cmdSizes = append(cmdSizes, 24)
	}
	if m.Platform != 0 {
		cmdSizes = append(cmdSizes, 24)
	}
	if m.MinVersionIPhoneOS {
		cmdSizes = append(cmdSizes, 16)
	}
	pathCmds := m.pathCommands()
	for _, c := range pathCmds {
		cmdSizes = append(cmdSizes, c.size())
	}
	if !m.OmitLinkEdit {
		cmdSizes = append(cmdSizes, segmentCmdSize)
	}
	if sig != nil {
		cmdSizes = append(cmdSizes, 16)
	}
	sizeOfCmds := 0
	for _, s := range cmdSizes {
		sizeOfCmds += s
	}

	textDataOff := align(headerSize64+sizeOfCmds, 16)
	textEnd := textDataOff + len(m.InfoPlist)
	linkEditOff := align(textEnd, 16)
	linkEditSize := linkEditPadding + len(sig)
	sigOff := linkEditOff + linkEditPadding
	if m.SignatureOutsideLinkEdit {
		linkEditSize = linkEditPadding
		sigOff = linkEditOff + linkEditPadding
	}
	total := sigOff + len(sig)
	if m.OmitLinkEdit && sig == nil {
		total = linkEditOff
	}

	out := make([]byte, total)
	le.PutUint32(out[0:], macho.Magic64)
	le.PutUint32(out[4:], uint32(cpu))
	le.PutUint32(out[8:], 0)
	le.PutUint32(out[12:], uint32(macho.TypeExec))
	le.PutUint32(out[16:], uint32(len(cmdSizes)))
	le.PutUint32(out[20:], uint32(sizeOfCmds))

	cmds := out[headerSize64:]

	// __TEXT
	nsect := 0
	if m.InfoPlist != nil {
		nsect = 1
	}
	putSegment(cmds, textCmdSize, "__TEXT", 0x100000000, uint64(textEnd), 0, uint64(textEnd), nsect)
	if m.InfoPlist != nil {
		sec := cmds[segmentCmdSize:]
		copy(sec[0:16], "__info_plist")
		copy(sec[16:32], "__TEXT")
		le.PutUint64(sec[32:], 0x100000000+uint64(textDataOff))
		le.PutUint64(sec[40:], uint64(len(m.InfoPlist)))
		le.PutUint32(sec[48:], uint32(textDataOff))
		copy(out[textDataOff:], m.InfoPlist)
	}
	cmds = cmds[textCmdSize:]

	if m.Encryption != nil {
		kind := uint32(lcEncryptionInfo64)
		if m.Encryption.Legacy {
			kind = lcEncryptionInfo
		}
		le.PutUint32(cmds[0:], kind)
		le.PutUint32(cmds[4:], 24)
		le.PutUint32(cmds[8:], uint32(textDataOff))
		le.PutUint32(cmds[12:], uint32(len(m.InfoPlist)))
		le.PutUint32(cmds[16:], m.Encryption.CryptID)
		cmds = cmds[24:]
	}

	if m.Platform != 0 {
		le.PutUint32(cmds[0:], lcBuildVersion)
		le.PutUint32(cmds[4:], 24)
		le.PutUint32(cmds[8:], m.Platform)
		le.PutUint32(cmds[12:], 0x00100000) // minos 16.0
		le.PutUint32(cmds[16:], 0x00110000) // sdk 17.0
		cmds = cmds[24:]
	}

	if m.MinVersionIPhoneOS {
		le.PutUint32(cmds[0:], lcVersionMinIPhone)
		le.PutUint32(cmds[4:], 16)
		le.PutUint32(cmds[8:], 0x000c0000)
		le.PutUint32(cmds[12:], 0x000d0000)
		cmds = cmds[16:]
	}

	for _, c := range pathCmds {
		size := c.size()
		le.PutUint32(cmds[0:], c.kind)
		le.PutUint32(cmds[4:], uint32(size))
		le.PutUint32(cmds[8:], uint32(c.header))
		if c.header == 24 {
			le.PutUint32(cmds[12:], 2)          // timestamp
			le.PutUint32(cmds[16:], 0x00010000) // current version 1.0
			le.PutUint32(cmds[20:], 0x00010000) // compatibility version 1.0
		}
		copy(cmds[c.header:], c.path)
		cmds = cmds[size:]
	}

	if !m.OmitLinkEdit {
		putSegment(cmds, segmentCmdSize, "__LINKEDIT", 0x100000000+uint64(linkEditOff), uint64(linkEditSize),
			uint64(linkEditOff), uint64(linkEditSize), 0)
		cmds = cmds[segmentCmdSize:]
	}

	if sig != nil {
		le.PutUint32(cmds[0:], lcCodeSignature)
		le.PutUint32(cmds[4:], 16)
		le.PutUint32(cmds[8:], uint32(sigOff))
		le.PutUint32(cmds[12:], uint32(len(sig)))
		copy(out[sigOff:], sig)
	}

	return out
}

func putSegment(b []byte, cmdSize int, name string, vmaddr, vmsize, fileoff, filesize uint64, nsect int) {
	le := binary.LittleEndian
	le.PutUint32(b[0:], lcSegment64)
	le.PutUint32(b[4:], uint32(cmdSize))
	copy(b[8:24], name)
	le.PutUint64(b[24:], vmaddr)
	le.PutUint64(b[32:], vmsize)
	le.PutUint64(b[40:], fileoff)
	le.PutUint64(b[48:], filesize)
	le.PutUint32(b[56:], 5) // maxprot r-x
	le.PutUint32(b[60:], 5)
	le.PutUint32(b[64:], uint32(nsect))
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}

// superBlob assembles an embedded-signature SuperBlob (big-endian)
func (s *Signature) superBlob() []byte {
	if s.Raw != nil {
		return s.Raw
	}
	type blob struct {
		slot uint32
		data []byte
	}
	blobs := []blob{{slot: 0, data: s.codeDirectory()}}
	if s.Entitlements != nil {
		blobs = append(blobs, blob{slot: 5, data: wrapBlob(0xfade7171, s.Entitlements)})
	}

	be := binary.BigEndian
	headerLen := 12 + 8*len(blobs)
	length := headerLen
	for _, b := range blobs {
		length += len(b.data)
	}
	out := make([]byte, headerLen, length)
	be.PutUint32(out[0:], 0xfade0cc0)
	be.PutUint32(out[4:], uint32(length))
	be.PutUint32(out[8:], uint32(len(blobs)))
	offset := headerLen
	for i, b := range blobs {
		be.PutUint32(out[12+8*i:], b.slot)
		be.PutUint32(out[16+8*i:], uint32(offset))
		out = append(out, b.data...)
		offset += len(b.data)
	}
	return out
}

func (s *Signature) codeDirectory() []byte {
	version := s.Version
	if version == 0 {
		version = 0x20400
	}
	be := binary.BigEndian
	const fixed = 52
	body := make([]byte, fixed)
	be.PutUint32(body[8:], version)

	identOff := fixed
	body = append(body, append([]byte(s.Identifier), 0)...)
	be.PutUint32(body[20:], uint32(identOff))

	if s.TeamID != "" && version >= 0x20200 {
		teamOff := len(body)
		body = append(body, append([]byte(s.TeamID), 0)...)
		be.PutUint32(body[48:], uint32(teamOff))
	}

	be.PutUint32(body[0:], 0xfade0c02)
	be.PutUint32(body[4:], uint32(len(body)))
	return body
}

func wrapBlob(magic uint32, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(out[0:], magic)
	binary.BigEndian.PutUint32(out[4:], uint32(len(out)))
	copy(out[8:], payload)
	return out
}

// Fat wraps thin images in a universal binary. Each image must use a distinct CPU.
func Fat(images ...Image) []byte {
	const sliceAlign = 0x1000
	be := binary.BigEndian

	header := make([]byte, 8+20*len(images))
	be.PutUint32(header[0:], 0xcafebabe)
	be.PutUint32(header[4:], uint32(len(images)))

	out := bytes.NewBuffer(nil)
	offset := align(len(header), sliceAlign)
	var slices [][]byte
	for i, img := range images {
		data := img.Build()
		cpu := img.CPU
		if cpu == 0 {
			cpu = macho.CpuArm64
		}
		entry := header[8+20*i:]
		be.PutUint32(entry[0:], uint32(cpu))
		be.PutUint32(entry[4:], 0)
		be.PutUint32(entry[8:], uint32(offset))
		be.PutUint32(entry[12:], uint32(len(data)))
		be.PutUint32(entry[16:], 12)
		slices = append(slices, data)
		offset = align(offset+len(data), sliceAlign)
	}

	out.Write(header)
	for _, data := range slices {
		out.Write(make([]byte, align(out.Len(), sliceAlign)-out.Len()))
		out.Write(data)
	}
	return out.Bytes()
}

// EntitlementsPlist renders string entitlements as an XML plist
func EntitlementsPlist(values map[string]string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString(`<plist version="1.0">` + "\n<dict>\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "\t<key>%s</key>\n\t<string>%s</string>\n", k, values[k])
	}
	b.WriteString("</dict>\n</plist>\n")
	return []byte(b.String())
}
