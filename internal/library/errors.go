package library

import (
	"errors"
)

var (
	// ErrNoInfoFoundToSubscribeTo is returned when a request carries neither
	// a URL nor any channel, user or playlist identifier.
	ErrNoInfoFoundToSubscribeTo = errors.New("no info found to subscribe to")
	// ErrNotSupported is returned for sources that cannot be turned into a feed.
	ErrNotSupported = errors.New("subscription source not supported")
	// ErrNoInfoFoundToUnsubscribe is returned when neither a channel nor a
	// playlist ID is given.
	ErrNoInfoFoundToUnsubscribe = errors.New("no info found to unsubscribe")
	// ErrFailedGettingChannelID is returned when a user name cannot be
	// resolved to a channel ID.
	ErrFailedGettingChannelID = errors.New("failed getting channel id from user name")
)

// CouldNotSubscribeError reports a subscription attempt that resolved
// without success.
type CouldNotSubscribeError struct {
	Reason string
	Err    error
}

func (e *CouldNotSubscribeError) Error() string {
	return "could not subscribe: " + e.Reason
}

func (e *CouldNotSubscribeError) Unwrap() error {
	return e.Err
}

// UserMessage turns an error returned by Library into a single actionable
// message for end users.
func UserMessage(err error) string {
	var couldNot *CouldNotSubscribeError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoInfoFoundToSubscribeTo):
		return "Nothing to subscribe to. Send a channel, playlist or feed URL."
	case errors.Is(err, ErrNotSupported):
		return "This link is not supported. Send a YouTube channel, playlist or feed URL."
	case errors.Is(err, ErrNoInfoFoundToUnsubscribe):
		return "Nothing to unsubscribe from. Pass a channel or playlist ID."
	case errors.Is(err, ErrFailedGettingChannelID):
		return "Could not find a channel for that user name."
	case errors.As(err, &couldNot):
		return "Could not subscribe: " + couldNot.Reason
	default:
		return "Something went wrong, please try again later."
	}
}
