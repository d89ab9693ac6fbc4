// Package catalogue holds the titles a seller offers and their prices.
//
// Lookup, Remove and Insert are serialized by one mutex. Remove is the only
// way an entry leaves the catalogue, so of two orders racing for a title
// exactly one observes it present.
package catalogue

import (
	stdErrors "errors"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/booktrade/io/store"
)

var (
	ErrInvalidPrice = errors.New("price must be a non-negative integer")
	ErrEmptyTitle   = errors.New("title cannot be empty")
)

//go:generate mockgen -destination=../../mocks/mock_repository.go -package=mocks . Repository
type Repository interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Take(key string) ([]byte, error)
	Snapshot() (map[string][]byte, error)
	Close() error
}

type Catalogue struct {
	mu   sync.Mutex
	repo Repository
}

func New(repo Repository) *Catalogue {
	return &Catalogue{repo: repo}
}

// Lookup returns the price of title without mutating the catalogue.
func (c *Catalogue) Lookup(title string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.repo.Get(title)
	return decode(title, raw, err)
}

// Remove deletes title and returns the price it was listed at. A missing
// title is reported with ok == false and no error.
func (c *Catalogue) Remove(title string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.repo.Take(title)
	return decode(title, raw, err)
}

// Insert adds or overwrites the price of title. Blank titles are rejected.
func (c *Catalogue) Insert(title string, price int) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if price < 0 {
		return errors.Wrapf(ErrInvalidPrice, "%q priced %d", title, price)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return errors.Wrapf(c.repo.Put(title, []byte(strconv.Itoa(price))), "insert %q", title)
}

// Items returns a copy of every listed title with its price.
func (c *Catalogue) Items() (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot, err := c.repo.Snapshot()
	if err != nil {
		return nil, errors.Wrap(err, "list catalogue")
	}

	items := make(map[string]int, len(snapshot))
	for title, raw := range snapshot {
		price, _, err := decode(title, raw, nil)
		if err != nil {
			return nil, err
		}
		items[title] = price
	}

	return items, nil
}

func decode(title string, raw []byte, err error) (int, bool, error) {
	if err != nil {
		if stdErrors.Is(err, store.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, errors.Wrapf(err, "read %q", title)
	}

	price, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false, errors.Wrapf(err, "corrupted price for %q", title)
	}

	return price, true, nil
}
