package gateways

import (
	"context"
	"debug/macho"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/ochairo/appguard/internal/domain/entities"
	"howett.net/plist"
)

const (
	fatMagic         = 0xcafebabe
	infoPlistSection = "__info_plist"

	dylibCmdSize = 24
	rpathCmdSize = 12
)

// machoInspector inspects the running executable using debug/macho plus a raw
// walk of the load commands debug/macho leaves undecoded. Every call re-reads
// the image; nothing survives between calls.
type machoInspector struct {
	source ImageSource
}

// NewMachOInspector creates an inspector over source
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewMachOInspector(source ImageSource) *machoInspector {
	return &machoInspector{source: source}
}

// inspection is one parsed view of the image, valid until closed
type inspection struct {
	file      *macho.File
	slice     io.ReaderAt
	sliceSize int64
	image     *entities.ExecutableImage
	closer    io.Closer
}

func (in *inspection) Close() error {
	return in.closer.Close()
}

// Inspect returns the full image snapshot
func (g *machoInspector) Inspect(_ context.Context) (*entities.ExecutableImage, error) {
	in, err := g.open()
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only image
	defer in.Close()

	return in.image, nil
}

// ExtractEncryptionInfo reports the encryption descriptor
func (g *machoInspector) ExtractEncryptionInfo(_ context.Context) (entities.EncryptionInfo, error) {
	in, err := g.open()
	if err != nil {
		return entities.EncryptionInfo{}, err
	}
	//nolint:errcheck // Defer close on read-only image
	defer in.Close()

	return in.image.Encryption, nil
}

// ExtractSigningIdentityToken returns the token embedded in the code signature
func (g *machoInspector) ExtractSigningIdentityToken(_ context.Context) (entities.Optional[entities.SigningIdentityToken], error) {
	in, err := g.open()
	if err != nil {
		return entities.None[entities.SigningIdentityToken](), err
	}
	//nolint:errcheck // Defer close on read-only image
	defer in.Close()

	return in.signingIdentityToken()
}

// BuildPlatform returns the platform recorded by the linker
func (g *machoInspector) BuildPlatform(_ context.Context) (entities.BuildPlatform, error) {
	in, err := g.open()
	if err != nil {
		return entities.PlatformUnknown, err
	}
	//nolint:errcheck // Defer close on read-only image
	defer in.Close()

	return in.image.Platform, nil
}

// LinkedLibraries returns every dylib the image links against, resolved to paths
func (g *machoInspector) LinkedLibraries(_ context.Context) ([]string, error) {
	in, err := g.open()
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only image
	defer in.Close()

	return resolveLinkedLibraries(in.image), nil
}

// SigningIdentifier returns the CodeDirectory identifier
func (g *machoInspector) SigningIdentifier(_ context.Context) (entities.Optional[string], error) {
	in, err := g.open()
	if err != nil {
		return entities.None[string](), err
	}
	//nolint:errcheck // Defer close on read-only image
	defer in.Close()

	cs, err := in.codeSignature()
	if err != nil {
		return entities.None[string](), err
	}
	if cs == nil || cs.identifier == "" {
		return entities.None[string](), nil
	}
	return entities.Some(cs.identifier), nil
}

// EmbeddedInfo decodes the Info.plist linked into the binary, when there is one
func (g *machoInspector) EmbeddedInfo(_ context.Context) (entities.Optional[*entities.BundleInfo], error) {
	in, err := g.open()
	if err != nil {
		return entities.None[*entities.BundleInfo](), err
	}
	//nolint:errcheck // Defer close on read-only image
	defer in.Close()

	sec := in.file.Section(infoPlistSection)
	if sec == nil {
		return entities.None[*entities.BundleInfo](), nil
	}
	data, err := sec.Data()
	if err != nil {
		return entities.None[*entities.BundleInfo](), fmt.Errorf("failed to read %s: %w", infoPlistSection, err)
	}
	var info entities.BundleInfo
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return entities.None[*entities.BundleInfo](), fmt.Errorf("failed to parse embedded Info.plist: %w", err)
	}
	return entities.Some(&info), nil
}

// open parses the image. Malformed input returns an error wrapping
// entities.ErrMalformedImage and never panics.
func (g *machoInspector) open() (in *inspection, err error) {
	r, size, closer, err := g.source.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			_ = closer.Close()
			in = nil
			err = fmt.Errorf("%w: %v", entities.ErrMalformedImage, rec)
		}
	}()

	in, err = parseImage(r, size)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	in.closer = closer
	in.image.Path = g.source.Name()
	return in, nil
}

func parseImage(r io.ReaderAt, size int64) (*inspection, error) {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return nil, fmt.Errorf("%w: failed to read magic: %v", entities.ErrMalformedImage, err)
	}

	in := &inspection{slice: r, sliceSize: size}
	if binary.BigEndian.Uint32(magic[:]) == fatMagic {
		fat, err := macho.NewFatFile(io.NewSectionReader(r, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entities.ErrMalformedImage, err)
		}
		arch := selectArch(fat.Arches)
		if arch == nil {
			return nil, fmt.Errorf("%w: universal binary has no slices", entities.ErrMalformedImage)
		}
		in.file = arch.File
		in.slice = io.NewSectionReader(r, int64(arch.Offset), int64(arch.Size))
		in.sliceSize = int64(arch.Size)
	} else {
		f, err := macho.NewFile(io.NewSectionReader(r, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entities.ErrMalformedImage, err)
		}
		in.file = f
	}

	image, err := walkLoadCommands(in.file)
	if err != nil {
		return nil, err
	}
	image.CPU = in.file.Cpu.String()

	linkEdit, err := LocateLinkEditOffset(in.file)
	if err != nil {
		return nil, err
	}
	image.LinkEditOffset = linkEdit

	if sig, ok := image.CodeSignature.Get(); ok {
		region, _ := linkEditRange(image.Segments)
		if !region.Contains(sig) || sig.End() > uint64(in.sliceSize) {
			return nil, fmt.Errorf("%w: signature [%d,%d) link-edit [%d,%d)", entities.ErrSignatureOutsideLinkEdit,
				sig.Offset, sig.End(), region.Offset, region.End())
		}
	}

	in.image = image
	return in, nil
}

// selectArch prefers the slice matching the running architecture
func selectArch(arches []macho.FatArch) *macho.FatArch {
	if len(arches) == 0 {
		return nil
	}
	want := map[string]macho.Cpu{
		"arm64": macho.CpuArm64,
		"amd64": macho.CpuAmd64,
		"arm":   macho.CpuArm,
		"386":   macho.Cpu386,
	}[runtime.GOARCH]
	for i := range arches {
		if arches[i].Cpu == want {
			return &arches[i]
		}
	}
	return &arches[0]
}

// LocateLinkEditOffset walks the load-command table of header and returns the
// file offset of the link-edit segment. A missing segment is an error.
func LocateLinkEditOffset(header *macho.File) (uint64, error) {
	if header == nil {
		return 0, fmt.Errorf("%w: nil header", entities.ErrMalformedImage)
	}
	for _, load := range header.Loads {
		if seg, ok := load.(*macho.Segment); ok && seg.Name == entities.LinkEditSegment {
			return seg.Offset, nil
		}
	}
	return 0, entities.ErrLinkEditMissing
}

func linkEditRange(segments []entities.Segment) (entities.ByteRange, bool) {
	for _, seg := range segments {
		if seg.Name == entities.LinkEditSegment {
			return entities.ByteRange{Offset: seg.FileOffset, Size: seg.FileSize}, true
		}
	}
	return entities.ByteRange{}, false
}

// walkLoadCommands records every command and decodes the ones debug/macho leaves raw
func walkLoadCommands(f *macho.File) (*entities.ExecutableImage, error) {
	image := &entities.ExecutableImage{}
	order := f.ByteOrder

	for i, load := range f.Loads {
		raw := load.Raw()
		if len(raw) < 8 {
			return nil, fmt.Errorf("%w: load command %d too short", entities.ErrMalformedImage, i)
		}
		kind := order.Uint32(raw)
		image.LoadCommands = append(image.LoadCommands, entities.LoadCommand{
			Kind:    kind,
			Payload: slices.Clone(raw),
		})

		if seg, ok := load.(*macho.Segment); ok {
			image.Segments = append(image.Segments, entities.Segment{
				Name:       seg.Name,
				VMAddr:     seg.Addr,
				VMSize:     seg.Memsz,
				FileOffset: seg.Offset,
				FileSize:   seg.Filesz,
			})
			continue
		}

		switch kind {
		case entities.LoadCmdEncryptionInfo, entities.LoadCmdEncryptionInfo64:
			if image.Encryption.Present {
				return nil, fmt.Errorf("%w: duplicate encryption descriptor", entities.ErrMalformedImage)
			}
			if len(raw) < 20 {
				return nil, fmt.Errorf("%w: encryption descriptor too short", entities.ErrMalformedImage)
			}
			image.Encryption = entities.EncryptionInfo{
				Present: true,
				Range: entities.ByteRange{
					Offset: uint64(order.Uint32(raw[8:])),
					Size:   uint64(order.Uint32(raw[12:])),
				},
				CryptID: order.Uint32(raw[16:]),
			}

		case entities.LoadCmdCodeSignature:
			if image.CodeSignature.IsPresent() {
				return nil, fmt.Errorf("%w: duplicate code signature command", entities.ErrMalformedImage)
			}
			if len(raw) < 16 {
				return nil, fmt.Errorf("%w: code signature command too short", entities.ErrMalformedImage)
			}
			image.CodeSignature = entities.Some(entities.ByteRange{
				Offset: uint64(order.Uint32(raw[8:])),
				Size:   uint64(order.Uint32(raw[12:])),
			})

		case entities.LoadCmdBuildVersion:
			if len(raw) < 12 {
				return nil, fmt.Errorf("%w: build version command too short", entities.ErrMalformedImage)
			}
			image.Platform = entities.BuildPlatform(order.Uint32(raw[8:]))

		case entities.LoadCmdVersionMinIPhoneOS:
			if image.Platform == entities.PlatformUnknown {
				image.Platform = entities.PlatformIOS
			}

		case entities.LoadCmdLoadDylib, entities.LoadCmdLoadWeakDylib, entities.LoadCmdReexportDylib,
			entities.LoadCmdLazyLoadDylib, entities.LoadCmdLoadUpwardDylib:
			name, err := loadCommandPath(raw, order, dylibCmdSize)
			if err != nil {
				return nil, err
			}
			image.LinkedLibraries = append(image.LinkedLibraries, name)

		case entities.LoadCmdRpath:
			p, err := loadCommandPath(raw, order, rpathCmdSize)
			if err != nil {
				return nil, err
			}
			image.RunPaths = append(image.RunPaths, p)
		}
	}

	return image, nil
}

// loadCommandPath reads the lc_str whose offset is stored after the cmd/cmdsize header
func loadCommandPath(raw []byte, order binary.ByteOrder, headerSize uint32) (string, error) {
	if len(raw) < int(headerSize) {
		return "", fmt.Errorf("%w: load command %#x too short", entities.ErrMalformedImage, order.Uint32(raw))
	}
	off := order.Uint32(raw[8:])
	if off < headerSize {
		return "", fmt.Errorf("%w: path offset %d inside command header", entities.ErrMalformedImage, off)
	}
	p, err := cString(raw, off)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", fmt.Errorf("%w: empty path in load command %#x", entities.ErrMalformedImage, order.Uint32(raw))
	}
	return p, nil
}

// resolveLinkedLibraries expands @executable_path and @loader_path against the
// image directory. An @rpath name yields one path per run path; with no run
// path it stays unresolved, as dyld would refuse to load it.
func resolveLinkedLibraries(image *entities.ExecutableImage) []string {
	exeDir := path.Dir(image.Path)
	rpaths := make([]string, 0, len(image.RunPaths))
	for _, r := range image.RunPaths {
		rpaths = append(rpaths, expandLoaderPath(r, exeDir))
	}

	libs := make([]string, 0, len(image.LinkedLibraries))
	for _, name := range image.LinkedLibraries {
		rest, ok := strings.CutPrefix(name, "@rpath/")
		if !ok || len(rpaths) == 0 {
			libs = append(libs, expandLoaderPath(name, exeDir))
			continue
		}
		for _, dir := range rpaths {
			libs = append(libs, path.Join(dir, rest))
		}
	}
	return libs
}

func expandLoaderPath(p, exeDir string) string {
	for _, prefix := range []string{"@executable_path/", "@loader_path/"} {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			return path.Join(exeDir, rest)
		}
	}
	return p
}

// codeSignature reads and parses the embedded signature; nil when the image is unsigned
func (in *inspection) codeSignature() (*codeSignature, error) {
	sig, ok := in.image.CodeSignature.Get()
	if !ok {
		return nil, nil
	}
	if sig.Size > maxCodeSignatureSize {
		return nil, fmt.Errorf("%w: code signature of %d bytes", entities.ErrMalformedImage, sig.Size)
	}
	data := make([]byte, sig.Size)
	if _, err := in.slice.ReadAt(data, int64(sig.Offset)); err != nil {
		return nil, fmt.Errorf("%w: failed to read code signature: %v", entities.ErrMalformedImage, err)
	}
	return parseCodeSignature(data)
}

// signingIdentityToken resolves the binary-embedded token. Structured sources
// must agree; the application-identifier prefix and the raw scan are fallbacks.
func (in *inspection) signingIdentityToken() (entities.Optional[entities.SigningIdentityToken], error) {
	none := entities.None[entities.SigningIdentityToken]()

	cs, err := in.codeSignature()
	if err != nil || cs == nil {
		return none, err
	}

	var structured []string
	if cs.teamID != "" {
		if !entities.IsValidSigningIdentityToken(cs.teamID) {
			return none, fmt.Errorf("%w: code directory team identifier %q", entities.ErrMalformedImage, cs.teamID)
		}
		structured = append(structured, cs.teamID)
	}

	var fallback string
	if len(cs.entitlements) > 0 {
		var ents map[string]interface{}
		if _, perr := plist.Unmarshal(cs.entitlements, &ents); perr == nil {
			if team, ok := ents["com.apple.developer.team-identifier"].(string); ok && team != "" {
				if !entities.IsValidSigningIdentityToken(team) {
					return none, fmt.Errorf("%w: entitlements team identifier %q", entities.ErrMalformedImage, team)
				}
				structured = append(structured, team)
			}
			if appID, ok := ents["application-identifier"].(string); ok {
				prefix, _, _ := strings.Cut(appID, ".")
				if entities.IsValidSigningIdentityToken(prefix) {
					fallback = prefix
				}
			}
		} else if m := entities.TokenScanPattern.FindSubmatch(cs.entitlements); m != nil {
			fallback = string(m[1])
		}
	}

	if len(structured) > 0 {
		for _, t := range structured[1:] {
			if t != structured[0] {
				return none, fmt.Errorf("%w: %s != %s", entities.ErrTokenConflict, structured[0], t)
			}
		}
		return entities.Some(entities.SigningIdentityToken(structured[0])), nil
	}
	if fallback != "" {
		return entities.Some(entities.SigningIdentityToken(fallback)), nil
	}
	return none, nil
}

// IsMalformedImage reports whether err came from an untrustworthy image structure
func IsMalformedImage(err error) bool {
	return errors.Is(err, entities.ErrMalformedImage) ||
		errors.Is(err, entities.ErrLinkEditMissing) ||
		errors.Is(err, entities.ErrSignatureOutsideLinkEdit) ||
		errors.Is(err, entities.ErrTokenConflict)
}
