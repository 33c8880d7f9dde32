package entities

import "errors"

// Mach-O load command kinds the inspector cares about
const (
	LoadCmdSegment            uint32 = 0x1
	LoadCmdSegment64          uint32 = 0x19
	LoadCmdCodeSignature      uint32 = 0x1d
	LoadCmdEncryptionInfo     uint32 = 0x21
	LoadCmdVersionMinIPhoneOS uint32 = 0x25
	LoadCmdEncryptionInfo64   uint32 = 0x2c
	LoadCmdBuildVersion       uint32 = 0x32
	LoadCmdLoadDylib          uint32 = 0xc
	LoadCmdLazyLoadDylib      uint32 = 0x20
	LoadCmdLoadWeakDylib      uint32 = 0x80000018
	LoadCmdRpath              uint32 = 0x8000001c
	LoadCmdReexportDylib      uint32 = 0x8000001f
	LoadCmdLoadUpwardDylib    uint32 = 0x80000023
)

// LinkEditSegment is the segment holding dynamic-linking metadata and the code signature
const LinkEditSegment = "__LINKEDIT"

var (
	// ErrMalformedImage is returned for executable images whose structures cannot be trusted
	ErrMalformedImage = errors.New("malformed executable image")
	// ErrLinkEditMissing is returned when the link-edit segment is absent
	ErrLinkEditMissing = errors.New("link-edit segment not found")
	// ErrSignatureOutsideLinkEdit is returned when the code signature does not lie inside __LINKEDIT
	ErrSignatureOutsideLinkEdit = errors.New("code signature outside link-edit region")
	// ErrTokenConflict is returned when two signing identity sources inside one binary disagree
	ErrTokenConflict = errors.New("conflicting signing identity tokens")
)

// ExecutableImage is a snapshot of the running binary taken by one inspection.
// It is never persisted and never shared between verification calls.
type ExecutableImage struct {
	Path           string
	CPU            string
	LoadCommands   []LoadCommand
	Segments       []Segment
	LinkEditOffset uint64
	Encryption     EncryptionInfo
	Platform       BuildPlatform
	CodeSignature  Optional[ByteRange]

	// LinkedLibraries are dylib install names as recorded, before @-path expansion
	LinkedLibraries []string
	RunPaths        []string
}

// LoadCommand is one tagged record from the load-command table
type LoadCommand struct {
	Kind    uint32
	Payload []byte // full command bytes including the 8-byte cmd/cmdsize header
}

// Segment describes one mapped segment of the image
type Segment struct {
	Name       string
	VMAddr     uint64
	VMSize     uint64
	FileOffset uint64
	FileSize   uint64
}

// ByteRange is a file offset and length
type ByteRange struct {
	Offset uint64
	Size   uint64
}

// End returns the first byte after the range
func (r ByteRange) End() uint64 {
	return r.Offset + r.Size
}

// Contains reports whether other lies entirely inside r
func (r ByteRange) Contains(other ByteRange) bool {
	return other.Offset >= r.Offset && other.End() <= r.End() && other.End() >= other.Offset
}

// EncryptionInfo is the encryption descriptor of the image
type EncryptionInfo struct {
	Present bool
	CryptID uint32
	Range   ByteRange
}

// Encrypted reports whether the distribution channel encrypted the binary
func (e EncryptionInfo) Encrypted() bool {
	return e.Present && e.CryptID != 0
}

// BuildPlatform is the platform recorded by the linker (LC_BUILD_VERSION values)
type BuildPlatform uint32

// Known build platforms
const (
	PlatformUnknown          BuildPlatform = 0
	PlatformMacOS            BuildPlatform = 1
	PlatformIOS              BuildPlatform = 2
	PlatformTVOS             BuildPlatform = 3
	PlatformWatchOS          BuildPlatform = 4
	PlatformMacCatalyst      BuildPlatform = 6
	PlatformIOSSimulator     BuildPlatform = 7
	PlatformTVOSSimulator    BuildPlatform = 8
	PlatformWatchOSSimulator BuildPlatform = 9
	PlatformVisionOS         BuildPlatform = 11
	PlatformVisionOSSim      BuildPlatform = 12
)

// IsSimulator reports whether the platform is a virtual target
func (p BuildPlatform) IsSimulator() bool {
	switch p {
	case PlatformIOSSimulator, PlatformTVOSSimulator, PlatformWatchOSSimulator, PlatformVisionOSSim:
		return true
	default:
		return false
	}
}

func (p BuildPlatform) String() string {
	switch p {
	case PlatformMacOS:
		return "macos"
	case PlatformIOS:
		return "ios"
	case PlatformTVOS:
		return "tvos"
	case PlatformWatchOS:
		return "watchos"
	case PlatformMacCatalyst:
		return "maccatalyst"
	case PlatformIOSSimulator:
		return "ios-simulator"
	case PlatformTVOSSimulator:
		return "tvos-simulator"
	case PlatformWatchOSSimulator:
		return "watchos-simulator"
	case PlatformVisionOS:
		return "visionos"
	case PlatformVisionOSSim:
		return "visionos-simulator"
	default:
		return "unknown"
	}
}
