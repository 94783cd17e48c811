// Package processor runs one raw payload through normalization and enhancement.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-enrich-products/models"
	"github.com/aluiziolira/go-enrich-products/normalizer"
)

var (
	// ErrUnknownStore is returned for store identifiers with no normalizer.
	ErrUnknownStore = normalizer.ErrUnknownStore
	// ErrInternal wraps unexpected panics raised while processing a record.
	ErrInternal = errors.New("internal processing error")
)

// Failure kinds reported by FailureKind.
const (
	KindUnknownStore  = "unknown_store"
	KindNormalization = "normalization"
	KindInternal      = "internal"
)

// Enhancer derives AI fields for a normalized product. It must not fail.
type Enhancer interface {
	Enhance(ctx context.Context, p *models.Product) models.AIFields
}

// Processor composes the normalizer registry with an Enhancer.
type Processor struct {
	registry *normalizer.Registry
	enhancer Enhancer
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Processor. A nil registry means normalizer.DefaultRegistry.
func New(registry *normalizer.Registry, enhancer Enhancer, logger *slog.Logger) *Processor {
	if registry == nil {
		registry = normalizer.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		registry: registry,
		enhancer: enhancer,
		logger:   logger,
		now:      time.Now,
	}
}

// Stores lists the store identifiers this processor accepts.
func (p *Processor) Stores() []string {
	return p.registry.Stores()
}

// Supports reports whether store has a registered normalizer.
func (p *Processor) Supports(store string) bool {
	_, ok := p.registry.Lookup(store)
	return ok
}

// Process normalizes raw for store, enhances it and merges the results. It
// returns ErrUnknownStore before any enhancement work, a *normalizer.Failure
// for unusable payloads and ErrInternal for recovered panics.
func (p *Processor) Process(ctx context.Context, raw normalizer.Raw, store string) (out *models.EnrichedProduct, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrInternal, rec)
		}
	}()

	if !p.Supports(store) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, store)
	}

	product, err := p.registry.Normalize(raw, store)
	if err != nil {
		p.logger.Debug("normalization failed", slog.String("store", store), slog.Any("error", err))
		return nil, err
	}

	fields := p.enhancer.Enhance(ctx, product)
	return &models.EnrichedProduct{
		Product:   *product,
		AIFields:  fields,
		ScrapedAt: p.now().UTC(),
	}, nil
}

// FailureKind labels an error returned by Process.
func FailureKind(err error) string {
	var failure *normalizer.Failure
	switch {
	case errors.Is(err, ErrUnknownStore):
		return KindUnknownStore
	case errors.As(err, &failure):
		return KindNormalization
	default:
		return KindInternal
	}
}
