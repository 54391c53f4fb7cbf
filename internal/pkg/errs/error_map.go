/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template (kind, user message and
HTTP status).
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: Request and frame handling errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Kind: KindValidation, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Kind: KindValidation, Message: "Unsupported message format.", Status: http.StatusBadRequest},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Kind: KindValidation, Message: "Unsupported event: %s."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Kind: KindValidation, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Join and message validation errors
	ErrNameAndRoomRequired:   {Code: ErrNameAndRoomRequired, Kind: KindValidation, Message: "Username and room are required."},
	ErrAlreadyJoined:         {Code: ErrAlreadyJoined, Kind: KindValidation, Message: "You have already joined a room."},
	ErrSessionClosed:         {Code: ErrSessionClosed, Kind: KindValidation, Message: "Connection is closed."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Kind: KindValidation, Message: "Message is too long."},
	ErrMessageFlood:          {Code: ErrMessageFlood, Kind: KindValidation, Message: "You are sending messages too fast."},

	// 3xxx: Lookup errors
	ErrUserNotFound:      {Code: ErrUserNotFound, Kind: KindNotFound, Message: "User not found"},
	ErrRecipientNotFound: {Code: ErrRecipientNotFound, Kind: KindNotFound, Message: "User not found"},

	// 4xxx: Delivery errors
	ErrMessageNotSent: {Code: ErrMessageNotSent, Kind: KindDelivery, Message: "Message could not be sent"},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Kind: KindInternal, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
