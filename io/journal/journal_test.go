package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/booktrade/core/dto"
)

func TestJournal_AppendAndReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sales")

	j, err := Open(dir)
	require.NoError(t, err)

	soldAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.Append(dto.Sale{Title: "Foundation", Price: 20, Seller: "seller1", Buyer: "buyer1", SoldAt: soldAt}))
	require.NoError(t, j.Append(dto.Sale{Title: "Dune", Price: 12, Seller: "seller2", Buyer: "buyer1", SoldAt: soldAt}))
	require.Equal(t, uint64(2), j.Len())
	require.NoError(t, j.Close())

	// indexes continue after the last recorded sale
	j, err = Open(dir)
	require.NoError(t, err)
	defer j.Close()
	require.Equal(t, uint64(2), j.Len())

	require.NoError(t, j.Append(dto.Sale{Title: "Hyperion", Price: 9, Seller: "seller1", Buyer: "buyer2", SoldAt: soldAt}))

	sales, err := j.Sales()
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Equal(t, "Foundation", sales[0].Title)
	assert.Equal(t, 12, sales[1].Price)
	assert.Equal(t, dto.AID("buyer2"), sales[2].Buyer)
	assert.True(t, soldAt.Equal(sales[2].SoldAt))
}

func TestJournal_OpenEmptyDir(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	require.Error(t, err)
}
