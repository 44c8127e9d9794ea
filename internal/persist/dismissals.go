package persist

import (
	"database/sql"
	"fmt"
	"time"

	"safetyhub/internal/data"
	"safetyhub/internal/issue"
)

// Load reads all persisted dismissal records, ordered by issue key.
// Implements data.Persister.
func (s *Store) Load() ([]data.PersistedDismissal, error) {
	rows, err := s.db.Query(`
		SELECT source_id, issue_id, user_id,
		       first_seen_at_ns, issue_dismissed_at_ns, notification_dismissed_at_ns
		FROM dismissals
		ORDER BY source_id, issue_id, user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load dismissals: %w", err)
	}
	defer rows.Close()

	var records []data.PersistedDismissal
	for rows.Next() {
		var (
			sourceID, issueID string
			userID            int64
			firstSeenNS       int64
			issueNS, notifNS  sql.NullInt64
		)
		if err := rows.Scan(&sourceID, &issueID, &userID, &firstSeenNS, &issueNS, &notifNS); err != nil {
			return nil, fmt.Errorf("load dismissals: scan: %w", err)
		}
		records = append(records, data.PersistedDismissal{
			Key: issue.IssueKey{
				SourceID: sourceID,
				IssueID:  issueID,
				UserID:   issue.UserID(userID),
			},
			FirstSeenAt:             time.Unix(0, firstSeenNS).UTC(),
			IssueDismissedAt:        nullableInstant(issueNS),
			NotificationDismissedAt: nullableInstant(notifNS),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load dismissals: %w", err)
	}
	return records, nil
}

// Save replaces the persisted snapshot with the given records in a single
// transaction: either the whole snapshot lands or none of it does.
// Implements data.Persister.
func (s *Store) Save(records []data.PersistedDismissal) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save dismissals: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.Exec(`DELETE FROM dismissals`); err != nil {
		return fmt.Errorf("save dismissals: clear: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO dismissals
		(source_id, issue_id, user_id, first_seen_at_ns, issue_dismissed_at_ns, notification_dismissed_at_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save dismissals: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(
			rec.Key.SourceID,
			rec.Key.IssueID,
			int64(rec.Key.UserID),
			rec.FirstSeenAt.UnixNano(),
			instantToNull(rec.IssueDismissedAt),
			instantToNull(rec.NotificationDismissedAt),
		)
		if err != nil {
			return fmt.Errorf("save dismissals: insert %s: %w", rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save dismissals: commit: %w", err)
	}
	return nil
}

func nullableInstant(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func instantToNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
