package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

func (r *Repo) ListActive(ctx context.Context) ([]domain.CalendarFeed, error) {
	rows, err := r.q(ctx).QueryContext(ctx, listActiveFeedsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CalendarFeed
	for rows.Next() {
		var (
			f         domain.CalendarFeed
			syncedAt  sql.NullTime
			lastError sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.RoomID, &f.Platform, &f.URL, &f.IsActive, &syncedAt, &lastError); err != nil {
			return nil, err
		}
		if syncedAt.Valid {
			t := syncedAt.Time
			f.LastSyncedAt = &t
		}
		f.LastError = lastError.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repo) Save(ctx context.Context, f domain.CalendarFeed) error {
	_, err := r.q(ctx).ExecContext(ctx, upsertFeedSQL, f.ID, f.RoomID, f.Platform, f.URL, f.IsActive)
	return err
}

func (r *Repo) MarkSynced(ctx context.Context, id string, at time.Time, syncErr error) error {
	var lastError any
	if syncErr != nil {
		lastError = syncErr.Error()
	}
	_, err := r.q(ctx).ExecContext(ctx, markFeedSyncedSQL, at, lastError, id)
	return err
}
