// Package credentials maps caller-supplied credential selectors onto fully
// resolved gateway endpoints and secrets.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/payground/internal/config"
)

// Selector sources accepted on the wire.
const (
	SourcePlayground  = "gopayground"
	SourceTechSupport = "techsupport"
	SourceCustom      = "custom"
)

// ErrUnresolved marks selectors that cannot be turned into a credential:
// unknown source, or a custom source with a missing secret. Reported to the
// caller as a 400.
var ErrUnresolved = errors.New("credentials: unresolved selector")

// ErrMisconfigured marks a preset whose secrets are absent from the
// environment. This is an operational fault, not a caller error; config.Load
// rejects it at startup so hitting it at resolve time means the process was
// wired without going through Load.
var ErrMisconfigured = errors.New("credentials: environment misconfigured")

// Selector identifies which credential set and gateway environment to use.
// Custom selectors carry their own triple; presets resolve server-side.
type Selector struct {
	Source       string `json:"source"`
	GoID         string `json:"goid,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	TestMode     bool   `json:"test_mode,omitempty"`
}

// Resolved is a concrete gateway endpoint plus the secret pair to use
// against it. Resolution is pure; callers may hold on to the result and
// reuse GoID for operations that need the identity merged into their body.
type Resolved struct {
	Endpoint     string
	GoID         string
	ClientID     string
	ClientSecret string
}

// Resolver turns selectors into resolved credentials using the preset
// triples held in configuration.
type Resolver struct {
	SandboxURL    string
	ProductionURL string
	Playground    config.PresetCredential
	TechSupport   config.PresetCredential
}

// NewResolver builds a Resolver from loaded configuration.
func NewResolver(cfg *config.Config) Resolver {
	return Resolver{
		SandboxURL:    cfg.SandboxURL,
		ProductionURL: cfg.ProductionURL,
		Playground:    cfg.Playground,
		TechSupport:   cfg.TechSupport,
	}
}

// Resolve maps a selector onto an endpoint and secret pair.
func (r Resolver) Resolve(sel Selector) (Resolved, error) {
	switch strings.TrimSpace(sel.Source) {
	case SourcePlayground:
		if !r.Playground.Complete() {
			return Resolved{}, fmt.Errorf("%w: preset %q", ErrMisconfigured, SourcePlayground)
		}
		return Resolved{
			Endpoint:     r.SandboxURL,
			GoID:         r.Playground.GoID,
			ClientID:     r.Playground.ClientID,
			ClientSecret: r.Playground.ClientSecret,
		}, nil

	case SourceTechSupport:
		if !r.TechSupport.Complete() {
			return Resolved{}, fmt.Errorf("%w: preset %q", ErrMisconfigured, SourceTechSupport)
		}
		return Resolved{
			Endpoint:     r.ProductionURL,
			GoID:         r.TechSupport.GoID,
			ClientID:     r.TechSupport.ClientID,
			ClientSecret: r.TechSupport.ClientSecret,
		}, nil

	case SourceCustom:
		if strings.TrimSpace(sel.GoID) == "" ||
			strings.TrimSpace(sel.ClientID) == "" ||
			strings.TrimSpace(sel.ClientSecret) == "" {
			return Resolved{}, fmt.Errorf("%w: custom selector requires goid, client_id and client_secret", ErrUnresolved)
		}
		endpoint := r.ProductionURL
		if sel.TestMode {
			endpoint = r.SandboxURL
		}
		return Resolved{
			Endpoint:     endpoint,
			GoID:         sel.GoID,
			ClientID:     sel.ClientID,
			ClientSecret: sel.ClientSecret,
		}, nil

	default:
		return Resolved{}, fmt.Errorf("%w: unknown source %q", ErrUnresolved, sel.Source)
	}
}
