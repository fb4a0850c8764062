package ports

import (
	"context"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
)

// UsageRepository persists per-turn usage records for the operator dashboard.
type UsageRepository interface {
	Record(ctx context.Context, rec *conversation.UsageRecord) error
	List(ctx context.Context, filter *conversation.UsageFilter) ([]*conversation.UsageRecord, error)
}
