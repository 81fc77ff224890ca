package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	apperrors "bdcsubs/internal/errors"
)

// MessageType tags rows written to the messages table
const MessageType = "subscriber"

// User is a filer account
type User struct {
	Email string
	Name  string
}

func (s *Store) updateStatusSQL() string {
	return fmt.Sprintf(`UPDATE %s SET subscription_processed = $3, subscription_status = $4 WHERE org_id = $1 AND filing_period = $2`,
		qualified(s.cfg.AppSchema, "filer_processing_status"))
}

func (s *Store) insertStatusSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (org_id, filing_period, subscription_processed, subscription_status) VALUES ($1, $2, $3, $4)`,
		qualified(s.cfg.AppSchema, "filer_processing_status"))
}

func (s *Store) insertMessageSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (message_type, message, datetime, org_id) VALUES ($1, $2, now(), $3)`,
		qualified(s.cfg.AppSchema, "messages"))
}

func (s *Store) userSQL() string {
	return fmt.Sprintf(`SELECT email, name FROM %s WHERE org_id = $1 LIMIT 1`,
		qualified(s.cfg.AppSchema, "users"))
}

// UpsertStatus sets the processing status of org for period. The row is
// inserted when no existing row was updated; the last write wins.
func (s *Store) UpsertStatus(ctx context.Context, org, period string, processed bool, status string) error {
	tag, err := s.db.Exec(ctx, s.updateStatusSQL(), org, period, processed, status)
	if err != nil {
		return apperrors.NewPersistenceError("failed to update processing status", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, s.insertStatusSQL(), org, period, processed, status); err != nil {
		return apperrors.NewPersistenceError("failed to insert processing status", err)
	}
	s.logger.DebugContext(ctx, "processing status row created",
		slog.String("org_id", org),
		slog.String("period", period))
	return nil
}

// InsertMessage records a user-facing message for org
func (s *Store) InsertMessage(ctx context.Context, org, text string) error {
	if _, err := s.db.Exec(ctx, s.insertMessageSQL(), MessageType, text, org); err != nil {
		return apperrors.NewPersistenceError("failed to insert message", err)
	}
	return nil
}

// UserByOrg returns the first user of org
func (s *Store) UserByOrg(ctx context.Context, org string) (User, error) {
	var u User
	var email, name *string
	if err := s.db.QueryRow(ctx, s.userSQL(), org).Scan(&email, &name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperrors.NewNotFoundError("user for org " + org)
		}
		return User{}, apperrors.NewPersistenceError("failed to look up user", err)
	}
	if email != nil {
		u.Email = *email
	}
	if name != nil {
		u.Name = *name
	}
	return u, nil
}
