// Package idp is the boundary to the external identity provider. The
// rest of the SDK sees only the Provider interface and the closed
// AuthError set; provider-native error codes never cross this line.
package idp

import "context"

// Identity is the normalized result of a provider authentication:
// who the user is plus the raw identity token used for the backend
// exchange and later refreshes.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Token       string
}

// Provider is the contract required from the external identity
// provider. Implementations return identity facts only; session
// issuance and persistence stay with the session manager.
type Provider interface {
	// SignIn authenticates raw credentials and returns an identity.
	SignIn(ctx context.Context, email, password string) (*Identity, error)

	// SignUp creates an account and returns its identity.
	SignUp(ctx context.Context, email, password string) (*Identity, error)

	// SignOut revokes the provider session for the given token.
	SignOut(ctx context.Context, token string) error

	// SendPasswordReset triggers the provider's reset flow.
	SendPasswordReset(ctx context.Context, email string) error

	// SetDisplayName updates the profile display name. Callers treat a
	// failure here as non-fatal.
	SetDisplayName(ctx context.Context, token, name string) error
}
