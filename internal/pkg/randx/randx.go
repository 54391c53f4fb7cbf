/*
Package randx generates the opaque identifiers the relay hands out.

Connection ids and message ids are UUID v4 strings; clients treat both as opaque.
*/
package randx

import (
	"github.com/google/uuid"
)

const connIDPrefix = "conn_"

// ConnectionID returns a new identifier for a transport connection.
func ConnectionID() string {
	return connIDPrefix + uuid.NewString()
}

// MessageID returns a new identifier for a room message.
func MessageID() string {
	return uuid.NewString()
}
