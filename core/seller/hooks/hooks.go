// Package hooks provides an extensible hook system for sellers.
//
// Hooks allow custom pricing policy, metrics collection and sale auditing
// to run around the quote and order handlers without modifying them.
package hooks

import (
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/dto"
)

// DefaultHook provides the default logging behavior
type DefaultHook struct{}

// NewDefaultHook creates a new default hook instance
func NewDefaultHook() *DefaultHook {
	return &DefaultHook{}
}

// OnQuote implements the Hook interface for price queries
func (h *DefaultHook) OnQuote(*dto.Quote) bool { return true }

// OnAnswer logs the answer given to a price query
func (h *DefaultHook) OnAnswer(q *dto.Quote) {
	log.Debugf("quote for %q requested by %s (available: %t)", q.Title, q.Buyer, q.Available)
}

// OnSale emits the sale notification
func (h *DefaultHook) OnSale(s *dto.Sale) {
	log.WithFields(log.Fields{
		"title": s.Title,
		"price": s.Price,
		"buyer": s.Buyer,
	}).Infof("%s sold to agent %s", s.Title, s.Buyer)
}
