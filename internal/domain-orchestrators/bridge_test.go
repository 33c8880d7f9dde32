package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ochairo/appguard/internal/domain/entities"
)

func newTestBridge(legitimate bool, boot BootTask) (*Bridge, *mockLegitimacy, *mockEnforcer) {
	components, legitimacy, enforcer := testComponents(legitimate)
	runtime := NewRuntime(func(_ context.Context) (*Components, error) {
		return components, nil
	}, nil)
	return NewBridge(runtime, boot), legitimacy, enforcer
}

type callbackResult struct {
	url    entities.Optional[string]
	errMsg entities.Optional[string]
}

func TestBridge_Metadata(t *testing.T) {
	bridge, _, _ := newTestBridge(false, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "bundle identifier", got: bridge.GetBundleIdentifier(ctx), expected: "com.moon.app"},
		{name: "team identifier", got: bridge.GetTeamIdentifier(ctx), expected: "ABCDE12345"},
		{name: "version", got: bridge.GetVersion(ctx), expected: "2.4.0"},
		{name: "bundle name", got: bridge.GetBundleName(ctx), expected: "Moon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestBridge_KeyNotGatedByVerdict(t *testing.T) {
	ctx := context.Background()
	trusted, _, _ := newTestBridge(true, nil)
	untrusted, legitimacy, _ := newTestBridge(false, nil)

	a, okA := trusted.GetServerIdentityKey(ctx).Get()
	b, okB := untrusted.GetServerIdentityKey(ctx).Get()
	if !okA || !okB || !bytes.Equal(a, b) {
		t.Error("key differs between trusted and untrusted environments")
	}
	if legitimacy.calls.Load() != 0 {
		t.Error("key retrieval consulted the verdict")
	}
}

func TestBridge_IsAppLegitimateEvaluatesEveryCall(t *testing.T) {
	bridge, legitimacy, _ := newTestBridge(true, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !bridge.IsAppLegitimate(ctx) {
			t.Fatal("expected legitimate")
		}
	}
	if legitimacy.calls.Load() != 3 {
		t.Errorf("evaluated %d times, want 3", legitimacy.calls.Load())
	}
}

func TestBridge_SilentQuitDelegates(t *testing.T) {
	bridge, _, enforcer := newTestBridge(false, nil)
	bridge.SilentQuit(context.Background())

	if enforcer.quits.Load() != 1 {
		t.Errorf("SilentQuit reached the enforcer %d times", enforcer.quits.Load())
	}
}

func TestBridge_OnViewAppeared(t *testing.T) {
	deepLink := func(context.Context) (entities.Optional[string], error) {
		return entities.Some("moon://inbox/42"), nil
	}
	failing := func(context.Context) (entities.Optional[string], error) {
		return entities.None[string](), errors.New("session expired")
	}

	tests := []struct {
		name       string
		legitimate bool
		boot       BootTask
		wantURL    string
		wantErr    string
		wantBoot   bool
	}{
		{name: "untrusted environment", legitimate: false, boot: deepLink, wantErr: EnvironmentCheckFailed},
		{name: "deep link", legitimate: true, boot: deepLink, wantURL: "moon://inbox/42", wantBoot: true},
		{name: "boot failure", legitimate: true, boot: failing, wantErr: "session expired", wantBoot: true},
		{name: "no boot task", legitimate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booted := false
			var boot BootTask
			if tt.boot != nil {
				boot = func(ctx context.Context) (entities.Optional[string], error) {
					booted = true
					return tt.boot(ctx)
				}
			}
			bridge, _, _ := newTestBridge(tt.legitimate, boot)

			var results []callbackResult
			callback := func(url, errMsg entities.Optional[string]) {
				results = append(results, callbackResult{url: url, errMsg: errMsg})
			}
			bridge.OnViewAppeared(context.Background(), callback)
			bridge.OnViewAppeared(context.Background(), callback)

			if len(results) != 1 {
				t.Fatalf("callback fired %d times, want 1", len(results))
			}
			if booted != tt.wantBoot {
				t.Errorf("boot ran = %v, want %v", booted, tt.wantBoot)
			}
			if got := results[0].url.OrElse(""); got != tt.wantURL {
				t.Errorf("url = %q, want %q", got, tt.wantURL)
			}
			if got := results[0].errMsg.OrElse(""); got != tt.wantErr {
				t.Errorf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}
