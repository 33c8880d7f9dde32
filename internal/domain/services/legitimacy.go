package services

import (
	"context"

	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces"
	"github.com/ochairo/appguard/internal/domain/interfaces/gateways"
	"github.com/ochairo/appguard/internal/domain/interfaces/services"
)

// Signals recorded on an illegitimate verdict besides probe names
const (
	SignalPanic             = "internal-fault"
	SignalImageMalformed    = "image-malformed"
	SignalProvisioning      = "provisioning-malformed"
	SignalEncryption        = "encryption-policy"
	SignalTokenAbsent       = "signing-token-absent"
	SignalTokenMismatch     = "signing-token-mismatch"
	SignalTeamPinMismatch   = "team-pin-mismatch"
	SignalProbeFaultPostfix = ":fault"
)

// legitimacyEngine folds image facts, identity tokens and probe signals into one
// verdict. It holds no state across calls.
type legitimacyEngine struct {
	image        gateways.ImageInspector
	provisioning gateways.ProvisioningReader
	registry     *ProbeRegistry
	policy       entities.PolicyConfig
	logger       interfaces.Logger
}

// NewLegitimacyService creates the decision engine
func NewLegitimacyService(
	image gateways.ImageInspector,
	provisioning gateways.ProvisioningReader,
	registry *ProbeRegistry,
	policy entities.PolicyConfig,
	logger interfaces.Logger,
) services.LegitimacyService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if registry == nil {
		registry = NewProbeRegistry()
	}
	if policy.Encryption == "" {
		policy.Encryption = entities.EncryptionChannelAware
	}
	return &legitimacyEngine{
		image:        image,
		provisioning: provisioning,
		registry:     registry,
		policy:       policy,
		logger:       logger,
	}
}

// IsAppLegitimate always returns a boolean
func (e *legitimacyEngine) IsAppLegitimate(ctx context.Context) bool {
	return e.Evaluate(ctx).Legitimate()
}

// Evaluate runs every verdict step, failing closed on the first untrusted signal
func (e *legitimacyEngine) Evaluate(ctx context.Context) (verdict entities.Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			verdict = entities.IllegitimateVerdict(SignalPanic)
		}
		if !verdict.Legitimate() {
			e.logger.Debug("legitimacy check failed", interfaces.F("signal", verdict.Tripped()))
		}
	}()

	// a simulator can never be legitimate; nothing else is consulted
	for _, probe := range e.registry.ShortCircuit() {
		if result := evaluateProbe(ctx, probe); result.Signal {
			return entities.IllegitimateVerdict(result.Name)
		}
	}

	artifact, err := e.provisioning.ReadArtifact(ctx)
	if err != nil {
		return entities.IllegitimateVerdict(SignalProvisioning)
	}
	profile, hasProfile := artifact.Get()

	info, err := e.image.ExtractEncryptionInfo(ctx)
	if err != nil {
		return entities.IllegitimateVerdict(SignalImageMalformed)
	}
	channel := entities.None[entities.DistributionChannel]()
	if hasProfile && e.pinnedTeam(ctx) {
		channel = entities.Some(profile.Channel())
	}
	if !e.policy.Encryption.Satisfied(info, channel) {
		return entities.IllegitimateVerdict(SignalEncryption)
	}

	binaryToken, err := e.image.ExtractSigningIdentityToken(ctx)
	if err != nil {
		return entities.IllegitimateVerdict(SignalImageMalformed)
	}
	token, ok := binaryToken.Get()
	if !ok {
		return entities.IllegitimateVerdict(SignalTokenAbsent)
	}
	if pin := e.policy.ExpectedTeamIdentifier; pin != "" && string(token) != pin {
		return entities.IllegitimateVerdict(SignalTeamPinMismatch)
	}
	if hasProfile && profile.Token != token {
		return entities.IllegitimateVerdict(SignalTokenMismatch)
	}

	for _, probe := range e.registry.Probes() {
		if result := evaluateProbe(ctx, probe); result.Signal {
			return entities.IllegitimateVerdict(result.Name)
		}
	}

	return entities.LegitimateVerdict()
}

// pinnedTeam reports whether the binary token equals the configured team pin.
// The profile's channel only counts for an install pinned to the expected team.
func (e *legitimacyEngine) pinnedTeam(ctx context.Context) bool {
	pin := e.policy.ExpectedTeamIdentifier
	if pin == "" {
		return false
	}
	binaryToken, err := e.image.ExtractSigningIdentityToken(ctx)
	if err != nil {
		return false
	}
	token, ok := binaryToken.Get()
	return ok && string(token) == pin
}

// evaluateProbe runs one probe; a panicking probe counts as tripped under "<name>:fault"
func evaluateProbe(ctx context.Context, probe services.Probe) (result entities.ProbeResult) {
	result.Name = "probe"
	defer func() {
		if rec := recover(); rec != nil {
			result = entities.ProbeResult{Name: result.Name + SignalProbeFaultPostfix, Signal: true}
		}
	}()
	result.Name = probe.Name()
	result.Signal = probe.Evaluate(ctx)
	return result
}
