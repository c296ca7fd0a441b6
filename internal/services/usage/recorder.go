// Package usage records one row per guide request for operational reporting.
// Guide content is never stored.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/plantcare/internal/services/guide"
)

// Execer is the subset of *pgxpool.Pool the recorder needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Recorder struct {
	db Execer
}

// NewRecorder returns a recorder writing to db. A nil db makes every call a no-op.
func NewRecorder(db Execer) *Recorder {
	return &Recorder{db: db}
}

const insertGuideRequest = `
	INSERT INTO guide_requests (id, session_id, plant_type, climate, status, http_status, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *Recorder) LogUsage(ctx context.Context, stats guide.UsageStats) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.Exec(ctx, insertGuideRequest,
		stats.RequestID,
		stats.SessionID,
		stats.PlantType,
		stats.Climate,
		stats.Status,
		stats.HTTPStatus,
		stats.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting guide request: %w", err)
	}
	return nil
}
