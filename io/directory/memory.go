// Package directory resolves actors by the capabilities they advertise.
package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/dto"
)

var ErrEmptyCapability = errors.New("capability cannot be empty")

// Memory is an in-process directory. A node hosting it serves it to the
// other nodes through its gRPC gateway.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]map[dto.AID]struct{}
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]map[dto.AID]struct{})}
}

func (m *Memory) Register(_ context.Context, id dto.AID, capability string) error {
	if capability == "" {
		return errors.Wrapf(ErrEmptyCapability, "register %s", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	actors, ok := m.entries[capability]
	if !ok {
		actors = make(map[dto.AID]struct{})
		m.entries[capability] = actors
	}
	actors[id] = struct{}{}
	log.Debugf("directory: %s provides %s", id, capability)

	return nil
}

// Deregister removes every capability advertised by id.
func (m *Memory) Deregister(_ context.Context, id dto.AID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for capability, actors := range m.entries {
		delete(actors, id)
		if len(actors) == 0 {
			delete(m.entries, capability)
		}
	}

	return nil
}

// Search returns the actors advertising capability, sorted by identity.
func (m *Memory) Search(_ context.Context, capability string) ([]dto.AID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make([]dto.AID, 0, len(m.entries[capability]))
	for id := range m.entries[capability] {
		found = append(found, id)
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })

	return found, nil
}
