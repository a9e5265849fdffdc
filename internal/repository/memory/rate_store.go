package memory

import (
	"context"
	"sync"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
)

// RateStore - хранилище курсов в памяти процесса (storage.driver: memory и тесты)
type RateStore struct {
	mu    sync.RWMutex
	rates map[string]float64
	stamp domain.RefreshStamp
}

func NewRateStore() *RateStore {
	return &RateStore{rates: map[string]float64{}}
}

func (s *RateStore) ReadStamp(_ context.Context) (domain.RefreshStamp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stamp, nil
}

func (s *RateStore) ReadAll(_ context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out, nil
}

func (s *RateStore) ReadSubset(_ context.Context, codes []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(codes))
	for _, c := range codes {
		if v, ok := s.rates[c]; ok {
			out[c] = v
		}
	}
	return out, nil
}

// ReplaceAll - подменяет карту целиком под write-lock
func (s *RateStore) ReplaceAll(_ context.Context, rates map[string]float64, atMillis int64) error {
	next := make(map[string]float64, len(rates))
	for k, v := range rates {
		next[k] = v
	}

	s.mu.Lock()
	s.rates = next
	s.stamp = domain.RefreshStamp{LastRequestMillis: atMillis, Present: true}
	s.mu.Unlock()
	return nil
}
