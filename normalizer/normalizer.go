// Package normalizer maps raw store payloads onto the canonical product record.
package normalizer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aluiziolira/go-enrich-products/models"
)

var (
	// ErrUnknownStore is returned when no normalizer is registered for a store.
	ErrUnknownStore = errors.New("unknown store")
	// ErrMissingID indicates the payload carries no usable product id.
	ErrMissingID = errors.New("missing product id")
	// ErrMissingObject indicates a mandatory nested object is absent.
	ErrMissingObject = errors.New("missing mandatory object")
	// ErrNotObject indicates the payload itself is not a JSON object.
	ErrNotObject = errors.New("payload is not an object")
)

// DefaultCurrency is applied when a payload names no currency.
const DefaultCurrency = "EUR"

// Failure reports why a single payload could not be normalized.
type Failure struct {
	Store  string
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("normalize %s: %s: %v", f.Store, f.Reason, f.Err)
	}
	return fmt.Sprintf("normalize %s: %s", f.Store, f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Normalizer maps one raw payload to a Product.
type Normalizer interface {
	Normalize(raw Raw, store string) (*models.Product, error)
}

// NormalizerFunc adapts a function to the Normalizer interface.
type NormalizerFunc func(raw Raw, store string) (*models.Product, error)

// Normalize calls f(raw, store).
func (f NormalizerFunc) Normalize(raw Raw, store string) (*models.Product, error) {
	return f(raw, store)
}

// Registry maps store identifiers to normalizers.
type Registry struct {
	normalizers map[string]Normalizer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{normalizers: make(map[string]Normalizer)}
}

// DefaultRegistry returns a registry with every supported store.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("lidl", NormalizerFunc(normalizeLidl))
	r.Register("dm", NormalizerFunc(normalizeDM))
	r.Register("mercator", NormalizerFunc(normalizeMercator))
	r.Register("spar", NormalizerFunc(normalizeSpar))
	r.Register("tus", NormalizerFunc(normalizeTus))
	return r
}

// Register adds or replaces the normalizer for store.
func (r *Registry) Register(store string, n Normalizer) {
	r.normalizers[storeKey(store)] = n
}

// Lookup returns the normalizer registered for store.
func (r *Registry) Lookup(store string) (Normalizer, bool) {
	n, ok := r.normalizers[storeKey(store)]
	return n, ok
}

// Stores lists the registered store identifiers in sorted order.
func (r *Registry) Stores() []string {
	out := make([]string, 0, len(r.normalizers))
	for store := range r.normalizers {
		out = append(out, store)
	}
	sort.Strings(out)
	return out
}

// Normalize dispatches raw to the normalizer for store. Every error it returns
// other than ErrUnknownStore is a *Failure; panics are converted as well.
func (r *Registry) Normalize(raw Raw, store string) (p *models.Product, err error) {
	key := storeKey(store)
	n, ok := r.normalizers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, store)
	}
	if raw == nil {
		return nil, &Failure{Store: key, Reason: "invalid payload", Err: ErrNotObject}
	}

	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = &Failure{Store: key, Reason: "panic", Err: fmt.Errorf("%v", rec)}
		}
	}()

	p, err = n.Normalize(raw, key)
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) {
			return nil, failure
		}
		return nil, &Failure{Store: key, Reason: "normalizer error", Err: err}
	}
	if p == nil {
		return nil, &Failure{Store: key, Reason: "normalizer returned no record"}
	}
	if err := finalize(p, key); err != nil {
		return nil, &Failure{Store: key, Reason: "invalid record", Err: err}
	}
	return p, nil
}

// finalize enforces the invariants shared by every store.
func finalize(p *models.Product, store string) error {
	p.StoreName = store
	if strings.TrimSpace(p.ProductID) == "" {
		return ErrMissingID
	}
	if p.CurrentPrice < 0 || math.IsNaN(p.CurrentPrice) || math.IsInf(p.CurrentPrice, 0) {
		p.CurrentPrice = 0
	}
	if p.CurrencyCode == "" {
		p.CurrencyCode = DefaultCurrency
	}
	if p.CategoriesRaw == nil {
		p.CategoriesRaw = []string{}
	}
	return nil
}

func storeKey(store string) string {
	return strings.ToLower(strings.TrimSpace(store))
}
