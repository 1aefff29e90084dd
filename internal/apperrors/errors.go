package apperrors

import (
	"errors"
	"fmt"
)

// Common error kinds for the mail agent. Fatal kinds propagate to the caller;
// ErrGeneration and ErrDraftCreation are recovered per message inside the
// pipeline and only suppress that message's contribution to the tally.
var (
	// Configuration errors
	ErrConfiguration = errors.New("invalid or missing configuration")

	// OAuth flow errors
	ErrTokenExchange = errors.New("token exchange failed")
	ErrTokenRefresh  = errors.New("token refresh failed")

	// Session errors
	ErrUnauthenticated = errors.New("not authenticated")
	ErrSessionNotFound = errors.New("session not found")

	// Mailbox errors
	ErrFetch         = errors.New("failed to fetch messages")
	ErrDraftCreation = errors.New("failed to create draft")

	// Generation errors
	ErrGeneration = errors.New("failed to generate reply")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
