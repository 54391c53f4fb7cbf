package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the subset of *pgxpool.Pool the store needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	uniqueViolation    = "23505"
	messagesPrimaryKey = "messages_pkey"
)

const insertMessageSQL = `INSERT INTO messages (id, room, sender_name, body, sent_at) VALUES ($1, $2, $3, $4, $5)`

// PGStore appends records to the messages table.
type PGStore struct {
	db execer
}

// NewPGStore wraps a pool (or any compatible executor).
func NewPGStore(pool execer) *PGStore {
	return &PGStore{db: pool}
}

// Append inserts rec. A record whose id is already stored counts as written.
func (s *PGStore) Append(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx, insertMessageSQL, rec.ID, rec.Room, rec.SenderName, rec.Text, rec.SentAt.UTC())
	if err != nil {
		if isReplayedID(err) {
			return nil
		}
		return fmt.Errorf("insert message %s: %w", rec.ID, err)
	}
	return nil
}

// isReplayedID reports whether err is the primary key rejecting a message id that is
// already in the log. Other unique violations are real failures.
func isReplayedID(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == messagesPrimaryKey
}
