package acquisition

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"WasteReminder/internal/domain"
)

// Run is a single acquisition against one upstream for one address.
// Implementations keep fetched upstream data in their own fields; a Run is
// never reused for another acquisition.
type Run interface {
	// Fetch retrieves the raw upstream records. A second call performs no I/O.
	Fetch(ctx context.Context) error
	// Extract returns the de-duplicated raw date tokens for category.
	Extract(category domain.Category) ([]string, error)
	// Normalize turns one token into the reminder date (pickup minus one day).
	Normalize(token string) (domain.ReminderDate, error)
}

// Resolver is implemented by runs that must look the address up before fetching.
type Resolver interface {
	Resolve(ctx context.Context) error
}

// Strategy captures one upstream representation (text-regex, text-direct, rest-feed).
type Strategy interface {
	Name() string
	NewRun(addr domain.Address) Run
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or ErrUnknownStrategy.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, errors.Wrapf(domain.ErrUnknownStrategy, "strategy %q is not registered", name)
}

// Names lists registered strategies in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
