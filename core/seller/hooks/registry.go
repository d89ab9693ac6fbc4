package hooks

import (
	"github.com/vadiminshakov/booktrade/core/dto"
)

// Hook defines the interface for seller hooks.
type Hook interface {
	// OnQuote runs before a price query is answered. Returning false turns
	// the answer into a DECLINE.
	OnQuote(q *dto.Quote) bool
	// OnAnswer runs once the answer is decided; q.Available reports whether
	// a BID is sent.
	OnAnswer(q *dto.Quote)
	// OnSale runs after an order removed the title from the catalogue.
	OnSale(s *dto.Sale)
}

// Registry manages a collection of hooks. Hooks are registered before the
// seller starts serving and never change afterwards.
type Registry struct {
	hooks []Hook
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make([]Hook, 0),
	}
}

// Register adds a new hook to the registry.
func (r *Registry) Register(hook Hook) {
	r.hooks = append(r.hooks, hook)
}

// ExecuteQuote runs all registered quote hooks.
// Returns false if any hook returns false.
func (r *Registry) ExecuteQuote(q *dto.Quote) bool {
	for _, hook := range r.hooks {
		if !hook.OnQuote(q) {
			return false
		}
	}
	return true
}

// ExecuteAnswer tells every hook the final answer to a quote.
func (r *Registry) ExecuteAnswer(q *dto.Quote) {
	for _, hook := range r.hooks {
		hook.OnAnswer(q)
	}
}

// ExecuteSale notifies every registered hook of a sale.
func (r *Registry) ExecuteSale(s *dto.Sale) {
	for _, hook := range r.hooks {
		hook.OnSale(s)
	}
}
