package pitchside

import (
	"errors"

	"github.com/pitchside/pitchside-go/internal/cache"
	"github.com/pitchside/pitchside-go/internal/errs"
	"github.com/pitchside/pitchside-go/internal/session"
)

// Error types re-exported so callers compare against single symbols
// without importing internal packages.

type (
	// AuthError carries one code from the closed authentication set.
	AuthError = errs.AuthError
	// AuthCode is the closed set of authentication failures.
	AuthCode = errs.AuthCode

	// ChannelError carries one real-time channel failure code.
	ChannelError = errs.ChannelError
	// ChannelCode identifies real-time channel failures.
	ChannelCode = errs.ChannelCode

	// ValidationError reports a locally rejected input field.
	ValidationError = errs.ValidationError
)

const (
	AuthUnknown            = errs.AuthUnknown
	AuthInvalidCredentials = errs.AuthInvalidCredentials
	AuthAccountExists      = errs.AuthAccountExists
	AuthWeakCredential     = errs.AuthWeakCredential
	AuthAccountDisabled    = errs.AuthAccountDisabled
	AuthRateLimited        = errs.AuthRateLimited
	AuthNetworkUnavailable = errs.AuthNetworkUnavailable
)

const (
	ChannelHandshakeTimeout     = errs.ChannelHandshakeTimeout
	ChannelHandshakeRejected    = errs.ChannelHandshakeRejected
	ChannelTransportDropped     = errs.ChannelTransportDropped
	ChannelMaxReconnectExceeded = errs.ChannelMaxReconnectExceeded
)

// AuthCodeOf extracts the auth code, or AuthUnknown for other errors.
func AuthCodeOf(err error) AuthCode { return errs.AuthCodeOf(err) }

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool { return errs.IsValidation(err) }

// IsRecoverable reports whether err is a transport failure worth
// retrying (network failures, 5xx, 408, 429). Validation and auth
// errors are never recoverable by retry.
func IsRecoverable(err error) bool {
	var ce *errs.ClassifiedError
	return errors.As(err, &ce) && ce.Category == errs.Recoverable
}

// ErrNotAuthenticated is returned by session operations that need a
// live session.
var ErrNotAuthenticated = session.ErrNotAuthenticated

// ErrRefreshSuperseded is returned when a logout landed while a
// refresh was in flight; the refresh result was discarded.
var ErrRefreshSuperseded = session.ErrRefreshSuperseded

// ErrMutationPending is returned when an item already has an
// unresolved optimistic mutation.
var ErrMutationPending = cache.ErrMutationPending
