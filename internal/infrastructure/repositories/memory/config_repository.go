package memory

import (
	"context"
	"sync"

	"skylink/internal/core/domain"
	"skylink/internal/core/ports"
)

// MemoryConfigRepository keeps the configuration draft in process memory.
// Drafts do not survive a restart; it is the fallback when Redis is
// disabled or unreachable.
type MemoryConfigRepository struct {
	mu    sync.RWMutex
	draft *domain.StreamConfig
}

func NewMemoryConfigRepository() ports.ConfigRepository {
	return &MemoryConfigRepository{}
}

func (r *MemoryConfigRepository) LoadDraft(ctx context.Context) (*domain.StreamConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.draft == nil {
		return nil, nil
	}
	cfg := *r.draft
	return &cfg, nil
}

func (r *MemoryConfigRepository) SaveDraft(ctx context.Context, cfg domain.StreamConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = &cfg
	return nil
}

func (r *MemoryConfigRepository) ClearDraft(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = nil
	return nil
}
