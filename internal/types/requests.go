package types

// ------------------------------
// Request Types
// ------------------------------

// RegisterRequest holds the profile seed for a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Age      int    `json:"age"`
}

// ExchangeRequest trades an identity-provider token for a backend
// session token.
type ExchangeRequest struct {
	IdentityToken  string `json:"identityToken"`
	ProviderUserID string `json:"providerUserId"`
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
}

// SendMessageRequest posts a new message into a conversation.
type SendMessageRequest struct {
	Body string `json:"body"`
}
