package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"skylink/internal/core/domain"
	"skylink/internal/core/ports"
)

// ConfigStore owns the user-editable StreamConfig and the dirty flag. It is
// the single source of truth for what the operator wants; authoritative
// pushes seed it only while no unsubmitted edits exist.
type ConfigStore struct {
	repo   ports.ConfigRepository
	logger *zap.SugaredLogger

	mu     sync.Mutex
	config domain.StreamConfig
	dirty  bool
}

// NewConfigStore creates a store holding the default configuration. If a
// persisted draft exists it takes precedence and the store starts dirty, so
// a restart does not lose unsubmitted edits.
func NewConfigStore(ctx context.Context, repo ports.ConfigRepository, logger *zap.SugaredLogger) *ConfigStore {
	s := &ConfigStore{
		repo:   repo,
		logger: logger,
		config: domain.DefaultStreamConfig(),
	}

	if repo != nil {
		draft, err := repo.LoadDraft(ctx)
		if err != nil {
			logger.Warnw("failed to load draft config", "error", err)
		} else if draft != nil {
			s.config = *draft
			s.dirty = true
			logger.Infow("restored draft config", "mode", draft.Mode)
		}
	}

	return s
}

// Seed applies the server's view of the configuration. It is a no-op while
// the dirty flag is set; local edits are never clobbered by a push.
func (s *ConfigStore) Seed(cfg *domain.StreamConfig) {
	if cfg == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty {
		return
	}
	s.config = *cfg
}

// Edit merges a patch of whole-field replacements and sets the dirty flag.
// The draft is persisted best-effort.
func (s *ConfigStore) Edit(ctx context.Context, patch domain.ConfigPatch) domain.StreamConfig {
	s.mu.Lock()
	patch.Apply(&s.config)
	if !patch.IsZero() {
		s.dirty = true
	}
	cfg := s.config
	dirty := s.dirty
	s.mu.Unlock()

	if dirty && s.repo != nil {
		if err := s.repo.SaveDraft(ctx, cfg); err != nil {
			s.logger.Warnw("failed to persist draft config", "error", err)
		}
	}

	return cfg
}

// MarkSubmitted clears the dirty flag after a successful submission and
// drops the persisted draft.
func (s *ConfigStore) MarkSubmitted(ctx context.Context) {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.ClearDraft(ctx); err != nil {
			s.logger.Warnw("failed to clear draft config", "error", err)
		}
	}
}

// Snapshot returns a copy of the current configuration.
func (s *ConfigStore) Snapshot() domain.StreamConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Dirty reports whether unsubmitted edits exist.
func (s *ConfigStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
