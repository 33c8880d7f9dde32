package gateways

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ochairo/appguard/internal/domain-adapters/gateways/fixtures"
	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bundleDir = "/var/containers/Bundle/Application/X/Moon.app"

func linkedImage(dylibs ...string) fixtures.Image {
	img := signedImage()
	img.Dylibs = append([]string{
		"/usr/lib/libSystem.B.dylib",
		"@rpath/MoonKit.framework/MoonKit",
	}, dylibs...)
	img.WeakDylibs = []string{"/System/Library/Frameworks/UIKit.framework/UIKit"}
	img.RPaths = []string{"@executable_path/Frameworks", "/usr/lib/swift"}
	return img
}

func bundledInspector(img fixtures.Image) *machoInspector {
	return NewMachOInspector(NewBytesImageSource(bundleDir+"/Moon", img.Build()))
}

type staticModules struct {
	modules []string
	err     error
}

func (s staticModules) LoadedModules(context.Context) ([]string, error) {
	return s.modules, s.err
}

func TestMachOInspector_LinkedLibraries(t *testing.T) {
	inspector := bundledInspector(linkedImage("@executable_path/Frameworks/FridaGadget.dylib"))

	libs, err := inspector.LinkedLibraries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/usr/lib/libSystem.B.dylib",
		bundleDir + "/Frameworks/MoonKit.framework/MoonKit",
		"/usr/lib/swift/MoonKit.framework/MoonKit",
		bundleDir + "/Frameworks/FridaGadget.dylib",
		"/System/Library/Frameworks/UIKit.framework/UIKit",
	}, libs)

	image, err := inspector.Inspect(context.Background())
	require.NoError(t, err)
	assert.Len(t, image.LinkedLibraries, 4)
	assert.Equal(t, []string{"@executable_path/Frameworks", "/usr/lib/swift"}, image.RunPaths)
}

func TestMachOInspector_LinkedLibrariesWithoutRunPath(t *testing.T) {
	img := signedImage()
	img.Dylibs = []string{"@rpath/MoonKit.framework/MoonKit", "@loader_path/libmoon.dylib"}

	libs, err := bundledInspector(img).LinkedLibraries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"@rpath/MoonKit.framework/MoonKit", bundleDir + "/libmoon.dylib"}, libs)
}

func TestLoadCommandPath(t *testing.T) {
	le := binary.LittleEndian
	command := func(off uint32, name string) []byte {
		raw := make([]byte, 48)
		le.PutUint32(raw[0:], entities.LoadCmdLoadDylib)
		le.PutUint32(raw[4:], 48)
		le.PutUint32(raw[8:], off)
		copy(raw[24:], name)
		return raw
	}

	name, err := loadCommandPath(command(24, "/usr/lib/libz.dylib"), le, dylibCmdSize)
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib/libz.dylib", name)

	tests := map[string][]byte{
		"offset inside header": command(8, "/usr/lib"),
		"offset out of range":  command(64, "/usr/lib"),
		"empty name":           command(24, ""),
		"truncated command":    command(24, "/usr/lib")[:16],
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadCommandPath(raw, le, dylibCmdSize)
			assert.ErrorIs(t, err, entities.ErrMalformedImage)
		})
	}
}

func TestLinkedModuleLister(t *testing.T) {
	inspector := bundledInspector(linkedImage())

	t.Run("merges without duplicates", func(t *testing.T) {
		lister := NewLinkedModuleLister(staticModules{modules: []string{"/usr/lib/libSystem.B.dylib", "/usr/lib/dyld"}}, inspector)
		modules, err := lister.LoadedModules(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/usr/lib/libSystem.B.dylib", modules[0])
		assert.Equal(t, "/usr/lib/dyld", modules[1])
		assert.Len(t, modules, 6)
	})

	t.Run("process error", func(t *testing.T) {
		errMaps := errors.New("maps unavailable")
		_, err := NewLinkedModuleLister(staticModules{err: errMaps}, inspector).LoadedModules(context.Background())
		assert.ErrorIs(t, err, errMaps)
	})

	t.Run("image error", func(t *testing.T) {
		broken := NewMachOInspector(NewBytesImageSource("broken", []byte("not a binary")))
		_, err := NewLinkedModuleLister(staticModules{}, broken).LoadedModules(context.Background())
		assert.ErrorIs(t, err, entities.ErrMalformedImage)
	})
}

func TestLinkedModuleLister_FlagsInsertedDylibs(t *testing.T) {
	tests := []struct {
		name   string
		extra  []string
		signal bool
	}{
		{name: "system and bundled libraries only"},
		{name: "hooking library inserted into the bundle", extra: []string{"@executable_path/Frameworks/FridaGadget.dylib"}, signal: true},
		{name: "library loaded from outside the bundle", extra: []string{"/var/jb/usr/lib/libtweak.dylib"}, signal: true},
		{name: "rpath library escaping the bundle", extra: []string{"@rpath/../../tmp/x.dylib"}, signal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := NewLinkedModuleLister(staticModules{}, bundledInspector(linkedImage(tt.extra...)))
			probe := services.NewInjectedLibraryProbe(lister, mapEnv{},
				services.DefaultAllowedLibraryPrefixes, services.DefaultSuspiciousLibraries, bundleDir)
			assert.Equal(t, tt.signal, probe.Evaluate(context.Background()))
		})
	}
}

func TestCompositePlatformGateway_ReportsLinkedLibraries(t *testing.T) {
	gw := NewCompositePlatformGateway(bundledInspector(linkedImage()))

	modules, err := gw.LoadedModules(context.Background())
	require.NoError(t, err)
	assert.Contains(t, modules, "/System/Library/Frameworks/UIKit.framework/UIKit")
	assert.Contains(t, modules, bundleDir+"/Frameworks/MoonKit.framework/MoonKit")
}
