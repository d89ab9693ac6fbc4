// Package correlation mints the tokens that tie a reply to the request it answers.
package correlation

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vadiminshakov/booktrade/core/dto"
)

const (
	KindCallForBids = "cfp"
	KindOrder       = "order"
)

// Generator produces correlation ids of the form "<kind>-<owner>-<ulid>".
// ULIDs are drawn from monotonic entropy, so ids minted by one generator
// strictly increase even within the same millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func New() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Next returns a fresh correlation id for a request of kind sent by owner.
func (g *Generator) Next(kind string, owner dto.AID) string {
	g.mu.Lock()
	id := ulid.MustNew(ulid.Now(), g.entropy)
	g.mu.Unlock()

	return kind + "-" + string(owner) + "-" + id.String()
}
