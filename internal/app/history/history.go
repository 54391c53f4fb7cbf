/*
Package history is the append-only persistence hook for room messages.

Records are written after sanitization and never read back by the relay. Writes happen on a
background worker so a slow or unavailable database can never delay delivery.
*/
package history

import (
	"context"
	"time"
)

// Record is one relayed room message as it was broadcast.
type Record struct {
	ID         string
	Room       string
	SenderName string
	Text       string
	SentAt     time.Time
}

// Appender stores a single record.
type Appender interface {
	Append(ctx context.Context, rec Record) error
}
