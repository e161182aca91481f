package mysql

import (
	"context"
	"fmt"

	"valuation-backend/internal/storage"
)

func (s *Storage) SaveActivity(ctx context.Context, e storage.ActivityEntry) error {
	const op = "storage.mysql.SaveActivity"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, organization_id, user_id, action, entity_type, entity_id, summary, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrganizationID, e.UserID, e.Action, e.EntityType, e.EntityID, e.Summary, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListActivity returns the newest entries of an organization first.
func (s *Storage) ListActivity(ctx context.Context, orgID string, limit int) ([]*storage.ActivityEntry, error) {
	const op = "storage.mysql.ListActivity"

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, user_id, action, entity_type, entity_id, summary, occurred_at
		FROM activity_log WHERE organization_id = ? ORDER BY occurred_at DESC LIMIT ?`,
		orgID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := []*storage.ActivityEntry{}
	for rows.Next() {
		e := &storage.ActivityEntry{}
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &e.Summary, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return entries, nil
}
