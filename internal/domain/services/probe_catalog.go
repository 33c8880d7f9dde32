package services

// Probe names as they appear in diagnostics
const (
	ProbeSimulator           = "simulator"
	ProbeJailbreak           = "jailbreak"
	ProbeDebugger            = "debugger"
	ProbeSandboxBreach       = "sandbox-breach"
	ProbeInjectedLibrary     = "injected-library"
	ProbeForbiddenPath       = "forbidden-path"
	ProbeForbiddenCapability = "forbidden-capability"
)

// SimulatorEnvironmentVariables are set by the simulator runtime for every process it launches
var SimulatorEnvironmentVariables = []string{
	"SIMULATOR_DEVICE_NAME",
	"SIMULATOR_UDID",
	"SIMULATOR_ROOT",
}

// DefaultJailbreakArtifacts are apps and tools installed by jailbreaks
var DefaultJailbreakArtifacts = []string{
	"/Applications/Cydia.app",
	"/Applications/Sileo.app",
	"/Applications/Zebra.app",
	"/Applications/blackra1n.app",
	"/Applications/FakeCarrier.app",
	"/Applications/Icy.app",
	"/Applications/IntelliScreen.app",
	"/Applications/SBSettings.app",
	"/Library/MobileSubstrate/MobileSubstrate.dylib",
	"/Library/MobileSubstrate/DynamicLibraries",
	"/usr/lib/libhooker.dylib",
	"/usr/lib/libsubstitute.dylib",
	"/usr/lib/TweakInject",
	"/bin/bash",
	"/usr/bin/ssh",
	"/var/jb",
}

// DefaultSymlinkedSystemDirs are directories jailbreaks relocate to the data partition
var DefaultSymlinkedSystemDirs = []string{
	"/Applications",
	"/Library/Ringtones",
	"/Library/Wallpaper",
	"/usr/arm-apple-darwin9",
	"/usr/include",
	"/usr/libexec",
	"/usr/share",
}

// DefaultForbiddenPaths are files characteristic of a compromised device
var DefaultForbiddenPaths = []string{
	"/etc/apt",
	"/etc/apt/sources.list.d",
	"/var/lib/apt",
	"/var/lib/cydia",
	"/var/cache/apt",
	"/var/jb",
	"/.installed_unc0ver",
	"/.bootstrapped_electra",
	"/.cydia_no_stash",
	"/usr/sbin/sshd",
	"/usr/bin/sshd",
	"/usr/libexec/sftp-server",
	"/usr/libexec/cydia",
	"/private/var/stash",
	"/private/var/lib/apt",
	"/private/var/tmp/cydia.log",
	"/private/var/mobile/Library/SBSettings/Themes",
}

// DefaultForbiddenURLSchemes are registered only by jailbreak package managers and tools
var DefaultForbiddenURLSchemes = []string{
	"cydia",
	"sileo",
	"zbra",
	"filza",
	"undecimus",
	"activator",
}

// DefaultSuspiciousLibraries are name fragments of hooking frameworks and tweak loaders
var DefaultSuspiciousLibraries = []string{
	"MobileSubstrate",
	"Substrate",
	"TweakInject",
	"libhooker",
	"substitute",
	"SubstrateLoader",
	"SubstrateInserter",
	"SSLKillSwitch",
	"frida",
	"FridaGadget",
	"cynject",
	"libcycript",
}

// DefaultAllowedLibraryPrefixes are the locations of system and first-party modules
var DefaultAllowedLibraryPrefixes = []string{
	"/System/",
	"/usr/lib/",
	"/private/preboot/Cryptexes/",
	"/lib/",
	"/lib64/",
	"/usr/lib64/",
}

// DefaultDebuggerProcesses are parent process names of debuggers and instrumentation tools
var DefaultDebuggerProcesses = []string{
	"debugserver",
	"lldb",
	"gdb",
	"dlv",
	"strace",
	"ltrace",
	"frida-server",
	"frida",
	"cycript",
}

// mergeCatalog appends extra entries that are not already present
func mergeCatalog(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			if _, dup := seen[v]; dup || v == "" {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
