package catalogue

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/booktrade/io/store"
	"github.com/vadiminshakov/booktrade/mocks"
	"go.uber.org/mock/gomock"
)

func newCatalogue(t *testing.T) *Catalogue {
	s, err := store.New()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestCatalogue_InsertLookup(t *testing.T) {
	c := newCatalogue(t)

	require.NoError(t, c.Insert("Foundation", 20))

	price, ok, err := c.Lookup("Foundation")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 20, price)

	// lookup does not consume the entry
	_, ok, err = c.Lookup("Foundation")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCatalogue_InsertOverwrites(t *testing.T) {
	c := newCatalogue(t)

	require.NoError(t, c.Insert("Dune", 15))
	require.NoError(t, c.Insert("Dune", 0))

	price, ok, err := c.Lookup("Dune")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, price)
}

func TestCatalogue_RemoveThenLookup(t *testing.T) {
	c := newCatalogue(t)
	require.NoError(t, c.Insert("Dune", 12))

	price, ok, err := c.Remove("Dune")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 12, price)

	_, ok, err = c.Lookup("Dune")
	require.NoError(t, err)
	require.False(t, ok)

	// second remove is a normal miss
	_, ok, err = c.Remove("Dune")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCatalogue_InsertValidation(t *testing.T) {
	c := newCatalogue(t)

	require.ErrorIs(t, c.Insert("Dune", -1), ErrInvalidPrice)
	require.ErrorIs(t, c.Insert("", 3), ErrEmptyTitle)
	require.ErrorIs(t, c.Insert("  \t", 3), ErrEmptyTitle)

	items, err := c.Items()
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestCatalogue_Items(t *testing.T) {
	c := newCatalogue(t)
	require.NoError(t, c.Insert("Dune", 12))
	require.NoError(t, c.Insert("Foundation", 20))

	items, err := c.Items()
	require.NoError(t, err)
	require.Equal(t, map[string]int{"Dune": 12, "Foundation": 20}, items)
}

func TestCatalogue_ConcurrentRemoveSucceedsOnce(t *testing.T) {
	c := newCatalogue(t)
	require.NoError(t, c.Insert("Foundation", 20))

	var (
		wins int32
		wg   sync.WaitGroup
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := c.Remove("Foundation")
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins)
}

func TestCatalogue_RepositoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	c := New(repo)

	repo.EXPECT().Get("Dune").Return(nil, fmt.Errorf("disk on fire"))
	_, ok, err := c.Lookup("Dune")
	require.Error(t, err)
	require.False(t, ok)
	require.Contains(t, err.Error(), "disk on fire")

	repo.EXPECT().Take("Dune").Return(nil, store.ErrNotFound)
	_, ok, err = c.Remove("Dune")
	require.NoError(t, err)
	require.False(t, ok)

	repo.EXPECT().Snapshot().Return(nil, fmt.Errorf("iterator failed"))
	items, err := c.Items()
	require.Error(t, err)
	require.Nil(t, items)
	require.Contains(t, err.Error(), "iterator failed")

	repo.EXPECT().Get("Broken").Return([]byte("twelve"), nil)
	_, _, err = c.Lookup("Broken")
	require.Error(t, err)
	require.Contains(t, err.Error(), "corrupted price")
}
