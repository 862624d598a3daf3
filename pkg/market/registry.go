package market

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/syncx"
	"golang.org/x/time/rate"
)

// Factory creates the adapter handle for one exchange.
type Factory func() (Adapter, error)

// RegistryOption customises a registered exchange.
type RegistryOption func(*registration)

type registration struct {
	factory Factory
	limiter *rate.Limiter
}

// WithRateLimit bounds Acquire calls, one per fan-out task, to rps with the
// given burst. A task may issue several upstream requests, so this is not a
// per-request limit. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) RegistryOption {
	return func(r *registration) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Registry owns the live adapter handles, one per exchange id. Handles are
// created on first use and shared by every task until Close. Creation is atomic
// per exchange id, so concurrent fan-outs never build duplicates.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*registration
	resources *syncx.ResourceManager
	closed    bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[string]*registration),
		resources: syncx.NewResourceManager(),
	}
}

// Register adds an exchange id with its handle factory.
func (r *Registry) Register(exchange string, factory Factory, opts ...RegistryOption) {
	reg := &registration{factory: factory}
	for _, opt := range opts {
		opt(reg)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalizeName(exchange)] = reg
}

// Has reports whether exchange is configured.
func (r *Registry) Has(exchange string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[normalizeName(exchange)]
	return ok
}

// Exchanges lists configured exchange ids in lexical order.
func (r *Registry) Exchanges() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Acquire returns the shared adapter for exchange, creating it on first use.
// It takes one token from the exchange's rate limiter before returning.
func (r *Registry) Acquire(ctx context.Context, exchange string) (Adapter, error) {
	key := normalizeName(exchange)

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrRegistryClosed
	}
	reg, ok := r.entries[key]
	if !ok {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownExchange, exchange)
	}
	resource, err := r.resources.GetResource(key, func() (io.Closer, error) {
		adapter, err := reg.factory()
		if err != nil {
			return nil, err
		}
		logx.WithContext(ctx).Infof("market: opened %s handle (capabilities=%s)", key, adapter.Capabilities())
		return adapter, nil
	})
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if reg.limiter != nil {
		if err := reg.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return resource.(Adapter), nil
}

// Close tears down every live handle once. Later calls are no-ops and later
// Acquire calls fail with ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.resources.Close()
}
