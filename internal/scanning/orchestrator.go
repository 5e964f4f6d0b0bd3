package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	EngineUsedPrimary  = "primary"
	EngineUsedFallback = "fallback"
)

// OrchestratorConfig configures engine selection
type OrchestratorConfig struct {
	// Language is the hint passed to every engine
	Language string
	// PrimaryTimeout bounds the single primary engine call
	PrimaryTimeout time.Duration
	// FallbackTimeout bounds the single fallback engine call
	FallbackTimeout time.Duration
}

// DefaultOrchestratorConfig returns the default timeouts
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Language:        "korean",
		PrimaryTimeout:  15 * time.Second,
		FallbackTimeout: 60 * time.Second,
	}
}

// Recognition is the outcome of one orchestrated recognition
type Recognition struct {
	Lines      []Line
	EngineUsed string
	EngineName string
	// Errors lists primary failures that were recovered by the fallback
	Errors []string
}

// Orchestrator runs the primary engine and falls back to the local engine
type Orchestrator struct {
	primary  Engine
	fallback Engine
	cfg      OrchestratorConfig
}

// NewOrchestrator creates an orchestrator. Either engine may be nil.
func NewOrchestrator(primary, fallback Engine, cfg OrchestratorConfig) *Orchestrator {
	defaults := DefaultOrchestratorConfig()
	if cfg.Language == "" {
		cfg.Language = defaults.Language
	}
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = defaults.PrimaryTimeout
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = defaults.FallbackTimeout
	}
	return &Orchestrator{primary: primary, fallback: fallback, cfg: cfg}
}

// Engines returns the configured engine names, empty when not configured
func (o *Orchestrator) Engines() (primary, fallback string) {
	if o.primary != nil {
		primary = o.primary.Name()
	}
	if o.fallback != nil {
		fallback = o.fallback.Name()
	}
	return primary, fallback
}

// Recognize prepares the upload and runs it through the engines. Each engine
// is called at most once.
func (o *Orchestrator) Recognize(ctx context.Context, data []byte, contentType string) (*Recognition, error) {
	if o.primary == nil && o.fallback == nil {
		return nil, ErrEngineUnavailable
	}

	image, err := PrepareImage(data, contentType)
	if err != nil {
		return nil, err
	}

	rec := &Recognition{}
	var primaryErr error
	primaryNoText := false

	if o.primary != nil {
		lines, err := o.call(ctx, o.primary, o.cfg.PrimaryTimeout, image)
		switch {
		case err == nil && len(lines) > 0:
			rec.Lines = lines
			rec.EngineUsed = EngineUsedPrimary
			rec.EngineName = o.primary.Name()
			return rec, nil
		case err == nil:
			err = newEngineError(o.primary.Name(), KindNoTextFound, nil)
		}

		kind, _ := KindOf(err)
		if !kind.recoverable() {
			slog.Warn("Primary engine failed", "engine", o.primary.Name(), "kind", kind, "error", err)
			return nil, err
		}
		slog.Warn("Primary engine failed, falling back", "engine", o.primary.Name(), "kind", kind, "error", err)
		primaryErr = err
		primaryNoText = kind == KindNoTextFound
		rec.Errors = append(rec.Errors, err.Error())
	}

	if o.fallback == nil {
		if primaryNoText {
			return o.empty(rec, EngineUsedPrimary, o.primary.Name()), nil
		}
		if primaryErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, primaryErr)
		}
		return nil, ErrEngineUnavailable
	}

	lines, err := o.call(ctx, o.fallback, o.cfg.FallbackTimeout, image)
	if err == nil {
		rec.Lines = lines
		rec.EngineUsed = EngineUsedFallback
		rec.EngineName = o.fallback.Name()
		if rec.Lines == nil {
			rec.Lines = []Line{}
		}
		return rec, nil
	}

	kind, _ := KindOf(err)
	slog.Warn("Fallback engine failed", "engine", o.fallback.Name(), "kind", kind, "error", err)
	switch {
	case kind == KindNoTextFound:
		return o.empty(rec, EngineUsedFallback, o.fallback.Name()), nil
	case kind == KindMalformedImage:
		return nil, err
	case primaryNoText:
		// The primary read the image and found nothing; that answer stands
		rec.Errors = append(rec.Errors, err.Error())
		return o.empty(rec, EngineUsedPrimary, o.primary.Name()), nil
	}

	if primaryErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, errors.Join(primaryErr, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
}

// call runs one engine under its own deadline and stamps the engine name on
// every returned line
func (o *Orchestrator) call(ctx context.Context, engine Engine, timeout time.Duration, image []byte) ([]Line, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	lines, err := engine.Recognize(callCtx, image, o.cfg.Language)
	if err != nil {
		if _, ok := KindOf(err); !ok {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				err = newEngineError(engine.Name(), KindTimeout, err)
			} else {
				err = newEngineError(engine.Name(), KindTransport, err)
			}
		}
		return nil, err
	}

	stamped := make([]Line, len(lines))
	for i, l := range lines {
		l.Engine = engine.Name()
		l.Confidence = clampConfidence(l.Confidence)
		stamped[i] = l
	}
	slog.Debug("Engine finished", "engine", engine.Name(), "lines", len(stamped), "duration", time.Since(start))
	return stamped, nil
}

func (o *Orchestrator) empty(rec *Recognition, used, name string) *Recognition {
	rec.Lines = []Line{}
	rec.EngineUsed = used
	rec.EngineName = name
	return rec
}
