// Package journal keeps an append-only audit trail of confirmed sales.
//
// The journal is written for operators and the console; sellers never read it
// back to rebuild their catalogues.
package journal

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/gowal"
)

const (
	segmentPrefix    = "sales_"
	segmentThreshold = 1024 * 1024
	maxSegments      = 100
)

type Journal struct {
	mu   sync.Mutex
	wal  *gowal.Wal
	next uint64
}

// Open opens (or creates) the journal stored in dir.
func Open(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal dir is empty")
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           segmentPrefix,
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sales wal")
	}

	j := &Journal{wal: wal}
	for msg := range wal.Iterator() {
		if msg.Idx >= j.next {
			j.next = msg.Idx + 1
		}
	}

	return j, nil
}

// Append records a sale under the next journal index.
func (j *Journal) Append(sale dto.Sale) error {
	data, err := Encode(sale)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.wal.Write(j.next, sale.Title, data); err != nil {
		return errors.Wrapf(err, "append sale of %q", sale.Title)
	}
	j.next++

	return nil
}

// Sales returns every recorded sale in journal order.
func (j *Journal) Sales() ([]dto.Sale, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	sales := make([]dto.Sale, 0, j.next)
	for msg := range j.wal.Iterator() {
		sale, err := Decode(msg.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", msg.Idx)
		}
		sales = append(sales, sale)
	}

	return sales, nil
}

// Len returns the number of recorded sales.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.next
}

func (j *Journal) Close() error {
	return j.wal.Close()
}

// Encode serializes a sale into a journal payload.
func Encode(sale dto.Sale) ([]byte, error) {
	data, err := json.Marshal(sale)
	if err != nil {
		return nil, errors.Wrap(err, "encode sale")
	}
	return data, nil
}

// Decode deserializes a journal payload.
func Decode(data []byte) (dto.Sale, error) {
	var sale dto.Sale
	if err := json.Unmarshal(data, &sale); err != nil {
		return dto.Sale{}, errors.Wrap(err, "decode sale")
	}
	return sale, nil
}
