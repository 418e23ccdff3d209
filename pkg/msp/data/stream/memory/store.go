package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
)

type store struct {
	mu      sync.Mutex
	records []*stream.Record
	last    uint64
}

type ById []*stream.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

// New returns a new in memory stream.Store
func New() stream.Store {
	return &store{}
}

// Save implements stream.Store.Save
func (s *store) Save(_ context.Context, data *stream.Record) error {
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

// GetByAddress implements stream.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*stream.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(address); item != nil {
		return item.Clone(), nil
	}
	return nil, stream.ErrStreamNotFound
}

// GetAllByTreasury implements stream.Store.GetAllByTreasury
func (s *store) GetAllByTreasury(_ context.Context, treasury string) ([]*stream.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*stream.Record
	for _, item := range s.records {
		if item.TreasuryAddress == treasury {
			res = append(res, item.Clone())
		}
	}
	if len(res) == 0 {
		return nil, stream.ErrStreamNotFound
	}

	sort.Sort(ById(res))
	return res, nil
}

// GetAllByBeneficiary implements stream.Store.GetAllByBeneficiary
func (s *store) GetAllByBeneficiary(_ context.Context, beneficiary string) ([]*stream.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*stream.Record
	for _, item := range s.records {
		if item.BeneficiaryAddress == beneficiary {
			res = append(res, item.Clone())
		}
	}
	if len(res) == 0 {
		return nil, stream.ErrStreamNotFound
	}

	sort.Sort(ById(res))
	return res, nil
}

// CountByTreasury implements stream.Store.CountByTreasury
func (s *store) CountByTreasury(_ context.Context, treasury string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	for _, item := range s.records {
		if item.TreasuryAddress == treasury {
			count++
		}
	}
	return count, nil
}

// Delete implements stream.Store.Delete
func (s *store) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.records {
		if item.Address == address {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return stream.ErrStreamNotFound
}

func (s *store) findByAddress(address string) *stream.Record {
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
