package store

import (
	"context"
	"fmt"
	"time"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
)

const activityColumns = `id, user_id, role, event, outcome, email, ip_address, user_agent, created_at`

// ActivityFilter narrows ListActivity.
type ActivityFilter struct {
	Event   string
	Role    string
	Outcome string
	UserID  int64
	Page    query.Page
}

// InsertActivity appends an entry to the activity log.
func (s *Store) InsertActivity(ctx context.Context, e *model.ActivityEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	const q = `INSERT INTO activity_log (user_id, role, event, outcome, email, ip_address, user_agent, created_at)
		VALUES (:user_id, :role, :event, :outcome, :email, :ip_address, :user_agent, :created_at)`
	id, err := s.insert(ctx, s.db, q, e)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	e.ID = id
	return nil
}

// ListActivity returns the newest entries first along with the total count.
func (s *Store) ListActivity(ctx context.Context, f ActivityFilter) ([]model.ActivityEntry, int64, error) {
	var where []string
	var args []interface{}
	if f.Event != "" {
		where = append(where, "event = ?")
		args = append(args, f.Event)
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, f.Role)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.UserID > 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	cond := joinWhere(where)

	var total int64
	if err := s.get(ctx, s.db, &total, "SELECT COUNT(*) FROM activity_log"+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}
	entries := []model.ActivityEntry{}
	q := "SELECT " + activityColumns + " FROM activity_log" + cond + " ORDER BY created_at DESC, id DESC" + pageOf(f.Page).SQL()
	if err := s.list(ctx, s.db, &entries, q, args...); err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	return entries, total, nil
}

// PruneActivity deletes entries created before cutoff and returns how many
// were removed.
func (s *Store) PruneActivity(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM activity_log WHERE created_at < ?"), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune activity rows affected: %w", err)
	}
	return n, nil
}
