/*
Package errs provides custom error types and application-level error code constants.

These codes identify validation, lookup and delivery failures both inside the relay
and in the acknowledgement frames sent back to clients.
*/
package errs

// 1xxx: Request and frame handling errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a frame or request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrUnsupportedEvent indicates that the client sent an event name the relay does not handle.
	ErrUnsupportedEvent = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Join and message validation errors
const (
	// ErrNameAndRoomRequired indicates a join without a usable display name or room.
	ErrNameAndRoomRequired = 2001

	// ErrAlreadyJoined indicates a second join on a connection that already has a user.
	ErrAlreadyJoined = 2002

	// ErrSessionClosed indicates an event arriving after the session was closed.
	ErrSessionClosed = 2003

	// ErrMessageContentTooLong indicates that the message body exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrMessageFlood indicates the connection is sending messages faster than allowed.
	ErrMessageFlood = 2202
)

// 3xxx: Lookup errors
const (
	// ErrUserNotFound indicates the connection has no registered user.
	ErrUserNotFound = 3001

	// ErrRecipientNotFound indicates a private message addressed to nobody currently connected.
	ErrRecipientNotFound = 3002
)

// 4xxx: Delivery errors
const (
	// ErrMessageNotSent indicates the message could not be encoded or handed to the transport.
	ErrMessageNotSent = 4001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
