package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
)

type store struct {
	mu      sync.Mutex
	records []*treasury.Record
	last    uint64
}

type ById []*treasury.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

// New returns a new in memory treasury.Store
func New() treasury.Store {
	return &store{}
}

// Save implements treasury.Store.Save
func (s *store) Save(_ context.Context, data *treasury.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	if item := s.findByAddress(data.Address); item != nil {
		data.Id = item.Id
		data.CreatedAt = item.CreatedAt
		data.LastUpdatedAt = time.Now()
		data.CopyTo(item)
	} else {
		if data.Id == 0 {
			data.Id = s.last
		}
		if data.CreatedAt.IsZero() {
			data.CreatedAt = time.Now()
		}
		data.LastUpdatedAt = time.Now()
		s.records = append(s.records, data.Clone())
	}

	return nil
}

// GetByAddress implements treasury.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*treasury.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(address); item != nil {
		return item.Clone(), nil
	}
	return nil, treasury.ErrTreasuryNotFound
}

// GetAllByTreasurer implements treasury.Store.GetAllByTreasurer
func (s *store) GetAllByTreasurer(_ context.Context, treasurer string) ([]*treasury.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*treasury.Record
	for _, item := range s.records {
		if item.TreasurerAddress == treasurer {
			res = append(res, item.Clone())
		}
	}
	if len(res) == 0 {
		return nil, treasury.ErrTreasuryNotFound
	}

	sort.Sort(ById(res))
	return res, nil
}

// GetAllAutoCloseable implements treasury.Store.GetAllAutoCloseable
func (s *store) GetAllAutoCloseable(_ context.Context, limit uint64) ([]*treasury.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*treasury.Record
	for _, item := range s.records {
		if item.AutoClose && item.TotalStreams == 0 {
			res = append(res, item.Clone())
		}
		if limit > 0 && uint64(len(res)) >= limit {
			break
		}
	}
	if len(res) == 0 {
		return nil, treasury.ErrTreasuryNotFound
	}

	sort.Sort(ById(res))
	return res, nil
}

// Delete implements treasury.Store.Delete
func (s *store) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.records {
		if item.Address == address {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return treasury.ErrTreasuryNotFound
}

func (s *store) findByAddress(address string) *treasury.Record {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}
	return nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
