package ports

import (
	"context"

	"skylink/internal/core/domain"
)

// ConfigRepository persists the operator's draft configuration so unsaved
// edits survive an agent restart.
type ConfigRepository interface {
	LoadDraft(ctx context.Context) (*domain.StreamConfig, error)
	SaveDraft(ctx context.Context, cfg domain.StreamConfig) error
	ClearDraft(ctx context.Context) error
}
