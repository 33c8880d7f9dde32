package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces/services"
)

func newEngine(image *mockImageInspector, prov *mockProvisioningReader, registry *ProbeRegistry, policy entities.PolicyConfig) *legitimacyEngine {
	//nolint:forcetypeassert // constructor always returns *legitimacyEngine
	return NewLegitimacyService(image, prov, registry, policy, nil).(*legitimacyEngine)
}

func TestLegitimacyService_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		image      func() *mockImageInspector
		prov       *mockProvisioningReader
		policy     entities.PolicyConfig
		probes     []*cannedProbe
		expected   bool
		wantSignal string
	}{
		{
			name:     "app store install, clean device",
			image:    newSignedImage,
			prov:     profileFor(testTeam, entities.ChannelAppStore),
			probes:   []*cannedProbe{{name: ProbeJailbreak}, {name: ProbeDebugger}},
			expected: true,
		},
		{
			name:     "no bundled profile",
			image:    newSignedImage,
			prov:     &mockProvisioningReader{},
			expected: true,
		},
		{
			name:       "profile unparsable",
			image:      newSignedImage,
			prov:       &mockProvisioningReader{err: fmt.Errorf("%w: bad", entities.ErrMalformedProvisioning)},
			wantSignal: SignalProvisioning,
		},
		{
			name: "encryption descriptor missing",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryption = entities.EncryptionInfo{}
				return img
			},
			prov:       &mockProvisioningReader{},
			wantSignal: SignalEncryption,
		},
		{
			name: "decrypted binary on app store",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryption.CryptID = 0
				return img
			},
			prov:       profileFor(testTeam, entities.ChannelAppStore),
			wantSignal: SignalEncryption,
		},
		{
			name: "unencrypted enterprise build without a team pin",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryption.CryptID = 0
				return img
			},
			prov:       profileFor(testTeam, entities.ChannelEnterprise),
			wantSignal: SignalEncryption,
		},
		{
			name: "decrypted binary re-signed with a development profile",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryption.CryptID = 0
				img.token = entities.Some(entities.SigningIdentityToken(otherTeam))
				return img
			},
			prov:       profileFor(otherTeam, entities.ChannelDevelopment),
			wantSignal: SignalEncryption,
		},
		{
			name: "unencrypted enterprise build pinned to the expected team",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryption.CryptID = 0
				return img
			},
			prov:     profileFor(testTeam, entities.ChannelEnterprise),
			policy:   entities.PolicyConfig{ExpectedTeamIdentifier: testTeam},
			expected: true,
		},
		{
			name: "unencrypted development build pinned to another team",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryption.CryptID = 0
				return img
			},
			prov:       profileFor(testTeam, entities.ChannelDevelopment),
			policy:     entities.PolicyConfig{ExpectedTeamIdentifier: otherTeam},
			wantSignal: SignalEncryption,
		},
		{
			name: "unencrypted enterprise build under strict policy",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryption.CryptID = 0
				return img
			},
			prov:       profileFor(testTeam, entities.ChannelEnterprise),
			policy:     entities.PolicyConfig{Encryption: entities.EncryptionStrict},
			wantSignal: SignalEncryption,
		},
		{
			name: "permissive policy ignores a missing descriptor",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryption = entities.EncryptionInfo{}
				return img
			},
			prov:     &mockProvisioningReader{},
			policy:   entities.PolicyConfig{Encryption: entities.EncryptionPermissive},
			expected: true,
		},
		{
			name: "malformed image",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.encryptionErr = entities.ErrLinkEditMissing
				return img
			},
			prov:       &mockProvisioningReader{},
			wantSignal: SignalImageMalformed,
		},
		{
			name: "conflicting tokens inside the binary",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.tokenErr = entities.ErrTokenConflict
				return img
			},
			prov:       &mockProvisioningReader{},
			wantSignal: SignalImageMalformed,
		},
		{
			name: "binary token absent",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.token = entities.None[entities.SigningIdentityToken]()
				return img
			},
			prov:       &mockProvisioningReader{},
			wantSignal: SignalTokenAbsent,
		},
		{
			name:       "re-signed binary",
			image:      newSignedImage,
			prov:       profileFor(otherTeam, entities.ChannelAppStore),
			wantSignal: SignalTokenMismatch,
		},
		{
			name:       "team pin mismatch",
			image:      newSignedImage,
			prov:       &mockProvisioningReader{},
			policy:     entities.PolicyConfig{ExpectedTeamIdentifier: otherTeam},
			wantSignal: SignalTeamPinMismatch,
		},
		{
			name:     "team pin match",
			image:    newSignedImage,
			prov:     &mockProvisioningReader{},
			policy:   entities.PolicyConfig{ExpectedTeamIdentifier: testTeam},
			expected: true,
		},
		{
			name:       "probe signal",
			image:      newSignedImage,
			prov:       &mockProvisioningReader{},
			probes:     []*cannedProbe{{name: ProbeJailbreak}, {name: ProbeDebugger, signal: true}},
			wantSignal: ProbeDebugger,
		},
		{
			name:       "panicking probe",
			image:      newSignedImage,
			prov:       &mockProvisioningReader{},
			probes:     []*cannedProbe{{name: ProbeInjectedLibrary, panics: true}},
			wantSignal: ProbeInjectedLibrary + SignalProbeFaultPostfix,
		},
		{
			name: "panicking gateway",
			image: func() *mockImageInspector {
				img := newSignedImage()
				img.panicOn = "ExtractSigningIdentityToken"
				return img
			},
			prov:       &mockProvisioningReader{},
			wantSignal: SignalPanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewProbeRegistry()
			for _, p := range tt.probes {
				registry.Register(p)
			}
			engine := newEngine(tt.image(), tt.prov, registry, tt.policy)

			verdict := engine.Evaluate(context.Background())
			if verdict.Legitimate() != tt.expected {
				t.Errorf("Legitimate() = %v, want %v (tripped %q)", verdict.Legitimate(), tt.expected, verdict.Tripped())
			}
			if verdict.Tripped() != tt.wantSignal {
				t.Errorf("Tripped() = %q, want %q", verdict.Tripped(), tt.wantSignal)
			}
			if engine.IsAppLegitimate(context.Background()) != tt.expected {
				t.Error("IsAppLegitimate disagrees with Evaluate")
			}
		})
	}
}

func TestLegitimacyService_ShortCircuitSkipsEverythingElse(t *testing.T) {
	image := newSignedImage()
	prov := profileFor(testTeam, entities.ChannelAppStore)
	later := &cannedProbe{name: ProbeJailbreak}
	registry := NewProbeRegistry().
		RegisterShortCircuit(&cannedProbe{name: ProbeSimulator, signal: true}).
		Register(later)

	verdict := newEngine(image, prov, registry, entities.PolicyConfig{}).Evaluate(context.Background())

	if verdict.Legitimate() {
		t.Fatal("simulator must never be legitimate")
	}
	if verdict.Tripped() != ProbeSimulator {
		t.Errorf("Tripped() = %q, want %q", verdict.Tripped(), ProbeSimulator)
	}
	if image.callCount() != 0 || prov.calls != 0 || later.calls != 0 {
		t.Errorf("short-circuit consulted other sources: image=%d profile=%d probe=%d",
			image.callCount(), prov.calls, later.calls)
	}
}

func TestLegitimacyService_FailFastOrder(t *testing.T) {
	first := &cannedProbe{name: "first", signal: true}
	second := &cannedProbe{name: "second", signal: true}
	registry := NewProbeRegistry().Register(first, second)

	verdict := newEngine(newSignedImage(), &mockProvisioningReader{}, registry, entities.PolicyConfig{}).
		Evaluate(context.Background())

	if verdict.Tripped() != "first" {
		t.Errorf("Tripped() = %q, want first", verdict.Tripped())
	}
	if second.calls != 0 {
		t.Error("evaluation continued after the first signal")
	}
}

// Any single signal flips a legitimate configuration to illegitimate
func TestLegitimacyService_Monotonic(t *testing.T) {
	names := []string{ProbeJailbreak, ProbeDebugger, ProbeSandboxBreach, ProbeInjectedLibrary, ProbeForbiddenPath, ProbeForbiddenCapability}

	for _, tripped := range names {
		t.Run(tripped, func(t *testing.T) {
			registry := NewProbeRegistry()
			for _, name := range names {
				registry.Register(&cannedProbe{name: name, signal: name == tripped})
			}
			verdict := newEngine(newSignedImage(), profileFor(testTeam, entities.ChannelAppStore), registry, entities.PolicyConfig{}).
				Evaluate(context.Background())
			if verdict.Legitimate() {
				t.Errorf("signal %s did not fail the verdict", tripped)
			}
		})
	}
}

func TestLegitimacyService_EveryCallIsIndependent(t *testing.T) {
	probe := &cannedProbe{name: ProbeDebugger}
	engine := newEngine(newSignedImage(), &mockProvisioningReader{}, NewProbeRegistry().Register(probe), entities.PolicyConfig{})
	ctx := context.Background()

	if !engine.IsAppLegitimate(ctx) {
		t.Fatal("expected legitimate before the debugger attaches")
	}
	probe.signal = true
	if engine.IsAppLegitimate(ctx) {
		t.Fatal("expected the second call to observe the attached debugger")
	}
	if probe.calls != 2 {
		t.Errorf("probe evaluated %d times, want 2", probe.calls)
	}
}

func TestLegitimacyService_SignalLoggedAtDebugOnly(t *testing.T) {
	logger := &recordingLogger{}
	registry := NewProbeRegistry().Register(&cannedProbe{name: ProbeForbiddenPath, signal: true})
	engine := NewLegitimacyService(newSignedImage(), &mockProvisioningReader{}, registry, entities.PolicyConfig{}, logger)

	if engine.IsAppLegitimate(context.Background()) {
		t.Fatal("expected illegitimate")
	}
	got, ok := logger.field("signal")
	if !ok || got != ProbeForbiddenPath {
		t.Errorf("signal field = %v, want %s", got, ProbeForbiddenPath)
	}
	for _, e := range logger.entries {
		if e.level != "debug" {
			t.Errorf("signal logged at %s", e.level)
		}
	}
}

func TestLegitimacyService_Defaults(t *testing.T) {
	engine := newEngine(newSignedImage(), &mockProvisioningReader{}, nil, entities.PolicyConfig{})
	if engine.policy.Encryption != entities.EncryptionChannelAware {
		t.Errorf("default encryption policy = %q", engine.policy.Encryption)
	}
	if !engine.IsAppLegitimate(context.Background()) {
		t.Error("empty registry on a clean signed image should be legitimate")
	}
}

func TestEvaluateProbe(t *testing.T) {
	tests := []struct {
		name  string
		probe services.Probe
		want  entities.ProbeResult
	}{
		{"quiet", &cannedProbe{name: ProbeJailbreak}, entities.ProbeResult{Name: ProbeJailbreak}},
		{"signal", &cannedProbe{name: ProbeDebugger, signal: true}, entities.ProbeResult{Name: ProbeDebugger, Signal: true}},
		{"evaluate panics", &cannedProbe{name: ProbeSandboxBreach, panics: true},
			entities.ProbeResult{Name: ProbeSandboxBreach + SignalProbeFaultPostfix, Signal: true}},
		{"name panics", panickingNameProbe{}, entities.ProbeResult{Name: "probe" + SignalProbeFaultPostfix, Signal: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluateProbe(context.Background(), tt.probe); got != tt.want {
				t.Errorf("evaluateProbe() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type panickingNameProbe struct{}

func (panickingNameProbe) Name() string                  { panic("no name") }
func (panickingNameProbe) Evaluate(context.Context) bool { return false }
