package store

import (
	"context"
	"fmt"
	"os"
)

// Stats computes the aggregate counters rendered by the reporting
// handlers. "Today" follows SQLite's DATE('now') day boundary, matching
// how upload timestamps are compared.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var stats Stats
	counters := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM identities`, &stats.IdentityCount},
		{`SELECT COUNT(*) FROM identities WHERE is_active = 1`, &stats.ActiveIdentityCount},
		{`SELECT COUNT(*) FROM stored_objects`, &stats.ObjectCount},
		{`SELECT COUNT(*) FROM stored_objects WHERE DATE(uploaded_at) = DATE('now')`, &stats.ObjectsCreatedToday},
		{`SELECT COUNT(*) FROM polls`, &stats.PollCount},
		{`SELECT COUNT(*) FROM polls WHERE is_active = 1`, &stats.ActivePollCount},
	}
	for _, counter := range counters {
		if err := s.db.QueryRowContext(ctx, counter.query).Scan(counter.dest); err != nil {
			return Stats{}, fmt.Errorf("stats: %w", err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.StorageSizeBytes = info.Size()
	}
	return stats, nil
}
