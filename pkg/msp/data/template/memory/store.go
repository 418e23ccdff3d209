package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
)

type store struct {
	mu      sync.Mutex
	records []*template.Record
	last    uint64
}

// New returns a new in memory template.Store
func New() template.Store {
	return &store{}
}

// Save implements template.Store.Save
func (s *store) Save(_ context.Context, data *template.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	if item := s.findByAddress(data.Address); item != nil {
		data.Id = item.Id
		data.LastUpdatedAt = time.Now()
		data.CopyTo(item)
	} else {
		if data.Id == 0 {
			data.Id = s.last
		}
		data.LastUpdatedAt = time.Now()
		s.records = append(s.records, data.Clone())
	}

	return nil
}

// GetByAddress implements template.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*template.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(address); item != nil {
		return item.Clone(), nil
	}
	return nil, template.ErrTemplateNotFound
}

// GetByTreasury implements template.Store.GetByTreasury
func (s *store) GetByTreasury(_ context.Context, treasury string) (*template.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.TreasuryAddress == treasury {
			return item.Clone(), nil
		}
	}
	return nil, template.ErrTemplateNotFound
}

// Delete implements template.Store.Delete
func (s *store) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.records {
		if item.Address == address {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return template.ErrTemplateNotFound
}

func (s *store) findByAddress(address string) *template.Record {
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
