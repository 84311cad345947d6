package storage

import (
	"context"
	"errors"
	"sync"

	"selfrep/internal/genotype"
	"selfrep/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	champions   map[string]model.Champion
	order       []string
	diagnostics map[string][]model.GenerationDiagnostics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.champions = make(map[string]model.Champion)
	s.order = nil
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	return nil
}

// SaveChampion keys champions by genome fingerprint. Saving the same genome
// again replaces the record but keeps its original position.
func (s *MemoryStore) SaveChampion(_ context.Context, champion model.Champion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if champion.Fingerprint == "" {
		champion.Fingerprint = genotype.Fingerprint(champion.Genome)
	}
	if _, exists := s.champions[champion.Fingerprint]; !exists {
		s.order = append(s.order, champion.Fingerprint)
	}
	champion.Genome = genotype.CloneGenome(champion.Genome)
	s.champions[champion.Fingerprint] = champion
	return nil
}

func (s *MemoryStore) GetChampion(_ context.Context, fingerprint string) (model.Champion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	champion, ok := s.champions[fingerprint]
	if !ok {
		return model.Champion{}, false, nil
	}
	champion.Genome = genotype.CloneGenome(champion.Genome)
	return champion, true, nil
}

func (s *MemoryStore) ListChampions(_ context.Context, runID string) ([]model.Champion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Champion, 0, len(s.order))
	for _, fingerprint := range s.order {
		champion := s.champions[fingerprint]
		if runID != "" && champion.RunID != runID {
			continue
		}
		champion.Genome = genotype.CloneGenome(champion.Genome)
		out = append(out, champion)
	}
	return out, nil
}

func (s *MemoryStore) SaveGenerations(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerations(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	return copied, true, nil
}

var errNotInitialized = errors.New("store is not initialized")
