package core

import "errors"

var (
	// ErrAuthenticationFailed means the mailbox credential was rejected.
	// Fatal to the whole scan, never retried.
	ErrAuthenticationFailed = errors.New("mailbox authentication failed")

	// ErrRateLimited is surfaced by the source adapter when the mailbox API
	// throttles a call. The adapter retries internally before escalating.
	ErrRateLimited = errors.New("mailbox rate limited")

	// ErrSourceUnavailable means rate-limit retries were exhausted or the
	// mailbox could not be reached at all.
	ErrSourceUnavailable = errors.New("mailbox unavailable")

	// ErrMalformedMessage means a single message payload could not be
	// interpreted. Fatal for that message only, never for the batch.
	ErrMalformedMessage = errors.New("malformed message payload")
)
