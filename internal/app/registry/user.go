/*
Package registry owns the mapping from connection identity to chat user and room membership.

Rooms have no entity of their own: a room exists for as long as at least one User names it,
and its roster is computed on demand from the live users.
*/
package registry

// User is a connection that has successfully joined a room.
// Fields use JSON tags for roster payloads; the connection id never leaves the server.
type User struct {
	// ConnID is the transport-assigned identity of the live connection.
	ConnID string `json:"-"`

	// Name is the trimmed display name chosen at join time.
	Name string `json:"name"`

	// Room is the trimmed room name chosen at join time.
	Room string `json:"room"`

	// seq records join order so rosters are stable.
	seq uint64
}
