package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/db"
)

type usageRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewUsageRepository creates the Postgres-backed usage log.
func NewUsageRepository(database *db.Database, logger *logrus.Logger) ports.UsageRepository {
	return &usageRepository{db: database, logger: logger}
}

// Record inserts one per-turn usage row.
func (r *usageRepository) Record(ctx context.Context, rec *conversation.UsageRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO usage_logs (
			id, session_id, kind, language,
			response_cache_hit, speech_cache_hit, latency_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := r.db.DB.ExecContext(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.Kind,
		rec.Language,
		rec.ResponseCache,
		rec.SpeechCache,
		rec.LatencyMS,
		rec.CreatedAt,
	)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"session_id": rec.SessionID, "kind": rec.Kind}).WithError(err).Error("db: failed to insert usage record")
		}
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// List retrieves usage records matching the filter, newest first.
func (r *usageRepository) List(ctx context.Context, filter *conversation.UsageFilter) ([]*conversation.UsageRecord, error) {
	query, args := buildUsageQuery(filter)
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"query": query, "args": args}).Debug("db: executing usage list query")
	}

	var records []*conversation.UsageRecord
	if err := r.db.DB.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	return records, nil
}

func buildUsageQuery(filter *conversation.UsageFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, session_id, kind, language, response_cache_hit, speech_cache_hit, latency_ms, created_at FROM usage_logs`)

	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.SessionID != "" {
			args = append(args, filter.SessionID)
			conds = append(conds, "session_id = $"+strconv.Itoa(len(args)))
		}
		if filter.Kind != "" {
			args = append(args, filter.Kind)
			conds = append(conds, "kind = $"+strconv.Itoa(len(args)))
		}
		if !filter.Since.IsZero() {
			args = append(args, filter.Since)
			conds = append(conds, "created_at >= $"+strconv.Itoa(len(args)))
		}
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC")

	limit := 100
	offset := 0
	if filter != nil {
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		if filter.Offset > 0 {
			offset = filter.Offset
		}
	}
	args = append(args, limit)
	sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	args = append(args, offset)
	sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))

	return sb.String(), args
}
