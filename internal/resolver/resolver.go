// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/bookbot/internal/config"
	"github.com/jeranaias/bookbot/internal/gemini"
	"github.com/jeranaias/bookbot/internal/model"
	"github.com/jeranaias/bookbot/internal/prompt"
)

// ErrNoAvailableModel is returned when every attempt was a 404 or an empty reply.
var ErrNoAvailableModel = errors.New("No available models found. Please check your API key and model access.")

// =============================================================================
// TYPES
// =============================================================================

// Upstream is the subset of the gemini client the resolver needs.
type Upstream interface {
	ListModels(ctx context.Context, version string) ([]gemini.ModelDescriptor, error)
	GenerateContent(ctx context.Context, version, model, prompt string) (string, error)
}

// Settings are the tunable, non-secret resolver parameters.
type Settings struct {
	ListVersion    string
	APIVersions    []string
	FallbackModels []string
	ModelFamily    string
	Brevity        string
	// AttemptTimeout bounds each upstream call (0 = only the request context).
	AttemptTimeout time.Duration
}

// SettingsFromConfig extracts resolver settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ListVersion:    cfg.Gemini.ListVersion,
		APIVersions:    append([]string(nil), cfg.Gemini.APIVersions...),
		FallbackModels: append([]string(nil), cfg.Gemini.FallbackModels...),
		ModelFamily:    cfg.Gemini.ModelFamily,
		Brevity:        cfg.Gemini.BrevityInstruction,
		AttemptTimeout: cfg.UpstreamTimeout(),
	}
}

// EndpointAttempt is one (model, API version) combination.
type EndpointAttempt struct {
	Model   string
	Version string
}

// Outcome classifies a single attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeNotFound Outcome = "not_found"
	OutcomeEmpty    Outcome = "empty"
	OutcomeFailure  Outcome = "failure"
)

// Attempt describes a finished upstream call.
type Attempt struct {
	RequestID string
	Model     string
	Version   string
	Status    int
	Outcome   Outcome
	Err       error
	Latency   time.Duration
}

// Observer receives every attempt as it completes.
type Observer func(ctx context.Context, a Attempt)

// Result is a successful resolution.
type Result struct {
	Text     string
	Model    string
	Version  string
	Attempts int
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver runs discovery and the attempt sweep. Safe for concurrent use;
// settings may be swapped while requests are in flight.
type Resolver struct {
	upstream Upstream
	observer Observer
	verbose  bool

	mu       sync.RWMutex
	settings Settings
}

// New creates a resolver over upstream with the given settings.
func New(upstream Upstream, settings Settings) *Resolver {
	return &Resolver{upstream: upstream, settings: normalize(settings)}
}

// WithObserver registers an attempt observer.
func (r *Resolver) WithObserver(o Observer) *Resolver {
	r.observer = o
	return r
}

// WithVerbose enables debug log lines.
func (r *Resolver) WithVerbose(v bool) *Resolver {
	r.verbose = v
	return r
}

// Settings returns a copy of the current settings.
func (r *Resolver) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.settings
	s.APIVersions = append([]string(nil), s.APIVersions...)
	s.FallbackModels = append([]string(nil), s.FallbackModels...)
	return s
}

// UpdateSettings replaces the settings for subsequent requests.
func (r *Resolver) UpdateSettings(s Settings) {
	s = normalize(s)
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
	log.Printf("RESOLVER_SETTINGS | fallback=%s | versions=%s",
		strings.Join(s.FallbackModels, ","), strings.Join(s.APIVersions, ","))
}

func normalize(s Settings) Settings {
	if s.ListVersion == "" {
		s.ListVersion = "v1beta"
	}
	if len(s.APIVersions) == 0 {
		s.APIVersions = append([]string(nil), config.DefaultAPIVersions...)
	}
	if len(s.FallbackModels) == 0 {
		s.FallbackModels = append([]string(nil), config.DefaultFallbackModels...)
	}
	if s.ModelFamily == "" {
		s.ModelFamily = config.DefaultModelFamily
	}
	return s
}

func (r *Resolver) debugf(format string, args ...any) {
	if r.verbose {
		log.Printf(format, args...)
	}
}

// =============================================================================
// DISCOVERY
// =============================================================================

// Discover returns the first listed model that supports generateContent and
// whose name contains the model family. Any failure yields ("", false).
func (r *Resolver) Discover(ctx context.Context) (string, bool) {
	s := r.Settings()
	return r.discover(ctx, s)
}

func (r *Resolver) discover(ctx context.Context, s Settings) (string, bool) {
	models, err := r.upstream.ListModels(ctx, s.ListVersion)
	if err != nil {
		r.debugf("DISCOVERY_SKIPPED | request_id=%s | error=%v", RequestIDFromContext(ctx), err)
		return "", false
	}
	for _, m := range models {
		if m.Supports(gemini.MethodGenerateContent) && strings.Contains(m.Name, s.ModelFamily) {
			id := m.ID()
			r.debugf("DISCOVERY_OK | request_id=%s | model=%s", RequestIDFromContext(ctx), id)
			return id, true
		}
	}
	r.debugf("DISCOVERY_SKIPPED | request_id=%s | error=no matching model", RequestIDFromContext(ctx))
	return "", false
}

// Candidates returns the model names to try: the discovered model alone, or
// the fallback list in declared order.
func (r *Resolver) Candidates(ctx context.Context) []string {
	return r.candidates(ctx, r.Settings())
}

func (r *Resolver) candidates(ctx context.Context, s Settings) []string {
	if name, ok := r.discover(ctx, s); ok {
		return []string{name}
	}
	return s.FallbackModels
}

// Attempts expands candidates into the ordered model x version sequence.
func Attempts(candidates, versions []string) []EndpointAttempt {
	out := make([]EndpointAttempt, 0, len(candidates)*len(versions))
	for _, m := range candidates {
		for _, v := range versions {
			out = append(out, EndpointAttempt{Model: m, Version: v})
		}
	}
	return out
}

// =============================================================================
// SWEEP
// =============================================================================

// sweep is the accumulator of the attempt fold.
type sweep struct {
	done    bool
	result  Result
	lastErr error
	tried   int
}

// Resolve flattens history and message into a prompt and generates a reply.
func (r *Resolver) Resolve(ctx context.Context, history []model.Turn, message string) (Result, error) {
	s := r.Settings()
	return r.generate(ctx, s, prompt.Flatten(history, message, s.Brevity))
}

// Generate sends an already-built prompt through discovery and the sweep.
func (r *Resolver) Generate(ctx context.Context, text string) (Result, error) {
	return r.generate(ctx, r.Settings(), text)
}

func (r *Resolver) generate(ctx context.Context, s Settings, text string) (Result, error) {
	start := time.Now()
	reqID := RequestIDFromContext(ctx)

	acc := sweep{}
	for _, a := range Attempts(r.candidates(ctx, s), s.APIVersions) {
		acc = r.step(ctx, s, acc, a, text)
		if acc.done {
			break
		}
	}

	if acc.done && acc.lastErr == nil {
		acc.result.Attempts = acc.tried
		log.Printf("RESOLVE_OK | request_id=%s | model=%s | version=%s | attempts=%d | %.3fs",
			reqID, acc.result.Model, acc.result.Version, acc.tried, time.Since(start).Seconds())
		return acc.result, nil
	}

	err := acc.lastErr
	if err == nil {
		err = ErrNoAvailableModel
	}
	log.Printf("RESOLVE_FAILED | request_id=%s | attempts=%d | %.3fs | error=%v",
		reqID, acc.tried, time.Since(start).Seconds(), err)
	return Result{}, err
}

// step folds one attempt into the accumulator. Cancellation of the request
// context ends the sweep with the context error.
func (r *Resolver) step(ctx context.Context, s Settings, acc sweep, a EndpointAttempt, text string) sweep {
	if err := ctx.Err(); err != nil {
		acc.done = true
		acc.lastErr = err
		return acc
	}

	callCtx := ctx
	if s.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := r.upstream.GenerateContent(callCtx, a.Version, a.Model, text)
	acc.tried++

	attempt := Attempt{
		RequestID: RequestIDFromContext(ctx),
		Model:     a.Model,
		Version:   a.Version,
		Latency:   time.Since(start),
		Err:       err,
	}

	var apiErr *gemini.APIError
	switch {
	case err == nil:
		attempt.Status = http.StatusOK
		attempt.Outcome = OutcomeSuccess
		acc.done = true
		acc.lastErr = nil
		acc.result = Result{Text: reply, Model: a.Model, Version: a.Version}
	case gemini.IsNotFound(err):
		attempt.Status = http.StatusNotFound
		attempt.Outcome = OutcomeNotFound
	case errors.Is(err, gemini.ErrEmptyResponse):
		attempt.Status = http.StatusOK
		attempt.Outcome = OutcomeEmpty
	default:
		if errors.As(err, &apiErr) {
			attempt.Status = apiErr.Status
		}
		attempt.Outcome = OutcomeFailure
		acc.lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			acc.done = true
			acc.lastErr = ctxErr
		}
	}

	r.debugf("UPSTREAM_ATTEMPT | request_id=%s | model=%s | version=%s | status=%d | outcome=%s | %.3fs",
		attempt.RequestID, a.Model, a.Version, attempt.Status, attempt.Outcome, attempt.Latency.Seconds())
	if r.observer != nil {
		r.observer(ctx, attempt)
	}
	return acc
}
