package errs

import (
	"errors"
	"fmt"
)

// AuthCode is the closed set of authentication failures surfaced to
// callers. Provider-native codes are mapped into this set at the
// identity-provider boundary and never escape it.
type AuthCode int

const (
	AuthUnknown AuthCode = iota
	AuthInvalidCredentials
	AuthAccountExists
	AuthWeakCredential
	AuthAccountDisabled
	AuthRateLimited
	AuthNetworkUnavailable
)

func (c AuthCode) String() string {
	switch c {
	case AuthInvalidCredentials:
		return "invalid_credentials"
	case AuthAccountExists:
		return "account_exists"
	case AuthWeakCredential:
		return "weak_credential"
	case AuthAccountDisabled:
		return "account_disabled"
	case AuthRateLimited:
		return "rate_limited"
	case AuthNetworkUnavailable:
		return "network_unavailable"
	default:
		return "unknown"
	}
}

// AuthError is an authentication failure with its mapped code.
type AuthError struct {
	Code       AuthCode
	Underlying error
}

func (e *AuthError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("auth %s: %v", e.Code, e.Underlying)
	}
	return "auth " + e.Code.String()
}

func (e *AuthError) Unwrap() error { return e.Underlying }

// NewAuthError wraps err under the given code.
func NewAuthError(code AuthCode, err error) *AuthError {
	return &AuthError{Code: code, Underlying: err}
}

// AuthCodeOf extracts the mapped code, or AuthUnknown if err is not an
// AuthError.
func AuthCodeOf(err error) AuthCode {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return AuthUnknown
}

// ------------------------------
// Channel errors
// ------------------------------

// ChannelCode identifies real-time channel failures.
type ChannelCode int

const (
	ChannelHandshakeTimeout ChannelCode = iota
	ChannelHandshakeRejected
	ChannelTransportDropped
	ChannelMaxReconnectExceeded
)

func (c ChannelCode) String() string {
	switch c {
	case ChannelHandshakeTimeout:
		return "handshake_timeout"
	case ChannelHandshakeRejected:
		return "handshake_rejected"
	case ChannelTransportDropped:
		return "transport_dropped"
	case ChannelMaxReconnectExceeded:
		return "max_reconnect_exceeded"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// ChannelError is a real-time channel failure. Codes below
// ChannelMaxReconnectExceeded stay internal to the reconnect loop.
type ChannelError struct {
	Code       ChannelCode
	Underlying error
}

func (e *ChannelError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("channel %s: %v", e.Code, e.Underlying)
	}
	return "channel " + e.Code.String()
}

func (e *ChannelError) Unwrap() error { return e.Underlying }

// NewChannelError wraps err under the given channel code.
func NewChannelError(code ChannelCode, err error) *ChannelError {
	return &ChannelError{Code: code, Underlying: err}
}
