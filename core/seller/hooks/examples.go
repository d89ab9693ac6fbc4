package hooks

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/io/metrics"
)

// MetricsHook exports quote and sale counters
type MetricsHook struct {
	metrics *metrics.Metrics
}

// NewMetricsHook creates a new metrics hook
func NewMetricsHook(m *metrics.Metrics) *MetricsHook {
	return &MetricsHook{metrics: m}
}

func (m *MetricsHook) OnQuote(*dto.Quote) bool { return true }

// OnAnswer counts the answer the seller gave
func (m *MetricsHook) OnAnswer(q *dto.Quote) {
	if q.Available {
		m.metrics.ObserveQuote(string(dto.Bid))
	} else {
		m.metrics.ObserveQuote(string(dto.Decline))
	}
}

// OnSale counts the sale and its revenue
func (m *MetricsHook) OnSale(s *dto.Sale) {
	m.metrics.ObserveSale(s.Price)
}

// ValidationHook declines queries the seller does not want to quote
type ValidationHook struct {
	maxTitleLength int
}

// NewValidationHook creates a new validation hook
func NewValidationHook(maxTitleLength int) *ValidationHook {
	return &ValidationHook{
		maxTitleLength: maxTitleLength,
	}
}

// OnQuote validates the queried title. The length is counted in characters.
func (v *ValidationHook) OnQuote(q *dto.Quote) bool {
	if n := utf8.RuneCountInString(q.Title); n > v.maxTitleLength {
		log.Errorf("title too long: %d > %d", n, v.maxTitleLength)
		return false
	}
	return true
}

func (v *ValidationHook) OnAnswer(*dto.Quote) {}

func (v *ValidationHook) OnSale(*dto.Sale) {}

type salesJournal interface {
	Append(sale dto.Sale) error
}

// JournalHook appends every sale to the audit journal
type JournalHook struct {
	journal salesJournal
}

// NewJournalHook creates a new journal hook
func NewJournalHook(j salesJournal) *JournalHook {
	return &JournalHook{journal: j}
}

func (a *JournalHook) OnQuote(*dto.Quote) bool { return true }

func (a *JournalHook) OnAnswer(*dto.Quote) {}

// OnSale records the sale; a journal failure never undoes the sale
func (a *JournalHook) OnSale(s *dto.Sale) {
	if err := a.journal.Append(*s); err != nil {
		log.WithField("audit", true).Error(errors.Wrapf(err, "journal sale of %q", s.Title))
	}
}
