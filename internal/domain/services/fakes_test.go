package services

import (
	"context"
	"errors"
	"sync"

	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces"
)

const (
	testTeam  = "ABCDE12345"
	otherTeam = "ZYXWV98765"
)

var errGateway = errors.New("gateway unavailable")

// mockImageInspector returns canned image facts and counts calls
type mockImageInspector struct {
	encryption    entities.EncryptionInfo
	encryptionErr error
	token         entities.Optional[entities.SigningIdentityToken]
	tokenErr      error
	platform      entities.BuildPlatform
	platformErr   error
	panicOn       string

	mu    sync.Mutex
	calls map[string]int
}

func newSignedImage() *mockImageInspector {
	return &mockImageInspector{
		encryption: entities.EncryptionInfo{Present: true, CryptID: 1},
		token:      entities.Some(entities.SigningIdentityToken(testTeam)),
		platform:   entities.PlatformIOS,
	}
}

func (m *mockImageInspector) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
	if m.panicOn == op {
		panic("mock image inspector: " + op)
	}
}

func (m *mockImageInspector) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *mockImageInspector) Inspect(_ context.Context) (*entities.ExecutableImage, error) {
	m.record("Inspect")
	return &entities.ExecutableImage{Encryption: m.encryption, Platform: m.platform}, nil
}

func (m *mockImageInspector) ExtractEncryptionInfo(_ context.Context) (entities.EncryptionInfo, error) {
	m.record("ExtractEncryptionInfo")
	return m.encryption, m.encryptionErr
}

func (m *mockImageInspector) ExtractSigningIdentityToken(_ context.Context) (entities.Optional[entities.SigningIdentityToken], error) {
	m.record("ExtractSigningIdentityToken")
	return m.token, m.tokenErr
}

func (m *mockImageInspector) BuildPlatform(_ context.Context) (entities.BuildPlatform, error) {
	m.record("BuildPlatform")
	return m.platform, m.platformErr
}

// mockProvisioningReader returns a canned profile
type mockProvisioningReader struct {
	artifact entities.Optional[*entities.ProvisioningArtifact]
	err      error
	calls    int
}

func profileFor(team string, channel entities.DistributionChannel) *mockProvisioningReader {
	artifact := &entities.ProvisioningArtifact{
		Name:         "Moon",
		Token:        entities.SigningIdentityToken(team),
		Entitlements: map[string]interface{}{},
	}
	switch channel {
	case entities.ChannelDevelopment:
		artifact.Entitlements["get-task-allow"] = true
	case entities.ChannelEnterprise:
		artifact.ProvisionsAllDevices = true
	case entities.ChannelAdHoc:
		artifact.ProvisionedDevices = []string{"00008030-001A"}
	}
	return &mockProvisioningReader{artifact: entities.Some(artifact)}
}

func (m *mockProvisioningReader) ReadArtifact(_ context.Context) (entities.Optional[*entities.ProvisioningArtifact], error) {
	m.calls++
	return m.artifact, m.err
}

func (m *mockProvisioningReader) ReadSigningIdentityToken(ctx context.Context) (entities.Optional[entities.SigningIdentityToken], error) {
	artifact, err := m.ReadArtifact(ctx)
	if err != nil {
		return entities.None[entities.SigningIdentityToken](), err
	}
	if a, ok := artifact.Get(); ok {
		return entities.Some(a.Token), nil
	}
	return entities.None[entities.SigningIdentityToken](), nil
}

// mockPlatform is a clean device unless fields say otherwise
type mockPlatform struct {
	existing     map[string]bool
	symlinks     map[string]bool
	fileErr      error
	writable     bool
	traced       bool
	traceErr     error
	parent       string
	parentErr    error
	foreign      int
	foreignErr   error
	modules      []string
	modulesErr   error
	spawnAllowed bool
	urls         map[string]bool
	urlErr       error
	env          map[string]string
}

func (m *mockPlatform) Exists(path string) (bool, error) {
	return m.existing[path], m.fileErr
}

func (m *mockPlatform) IsSymlink(path string) (bool, error) {
	return m.symlinks[path], m.fileErr
}

func (m *mockPlatform) CanWriteOutsideContainer() (bool, error) {
	return m.writable, nil
}

func (m *mockPlatform) IsTraced(_ context.Context) (bool, error) {
	return m.traced, m.traceErr
}

func (m *mockPlatform) ParentProcessName(_ context.Context) (string, bool, error) {
	return m.parent, m.parent != "", m.parentErr
}

func (m *mockPlatform) ForeignProcessCount(_ context.Context) (int, error) {
	return m.foreign, m.foreignErr
}

func (m *mockPlatform) LoadedModules(_ context.Context) ([]string, error) {
	return m.modules, m.modulesErr
}

func (m *mockPlatform) TrySpawn(_ context.Context) error {
	if m.spawnAllowed {
		return nil
	}
	return errors.New("operation not permitted")
}

func (m *mockPlatform) CanOpenURL(scheme string) (bool, error) {
	return m.urls[scheme], m.urlErr
}

func (m *mockPlatform) LookupEnv(key string) (string, bool) {
	v, ok := m.env[key]
	return v, ok
}

// cannedProbe returns a fixed signal and counts evaluations
type cannedProbe struct {
	name   string
	signal bool
	panics bool
	calls  int
}

func (p *cannedProbe) Name() string { return p.name }

func (p *cannedProbe) Evaluate(_ context.Context) bool {
	p.calls++
	if p.panics {
		panic("probe failure")
	}
	return p.signal
}

// recordingLogger keeps every message for assertions
type recordingLogger struct {
	interfaces.NoOpLogger
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields []interfaces.Field
}

func (l *recordingLogger) Debug(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: "debug", msg: msg, fields: fields})
}

func (l *recordingLogger) Warn(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: "warn", msg: msg, fields: fields})
}

func (l *recordingLogger) field(key string) (interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		for _, f := range e.fields {
			if f.Key == key {
				return f.Value, true
			}
		}
	}
	return nil, false
}
