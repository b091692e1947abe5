package idp

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/supabase-community/gotrue-go"
	gotruetypes "github.com/supabase-community/gotrue-go/types"

	"github.com/pitchside/pitchside-go/internal/errs"
)

// GoTrue adapts a GoTrue-compatible identity service (Supabase Auth or
// self-hosted) to the Provider interface.
type GoTrue struct {
	client gotrue.Client
}

// NewGoTrue builds the adapter. serviceURL overrides the default
// project endpoint when targeting a self-hosted instance.
func NewGoTrue(projectReference, apiKey, serviceURL string) *GoTrue {
	c := gotrue.New(projectReference, apiKey)
	if serviceURL != "" {
		c = c.WithCustomGoTrueURL(serviceURL)
	}
	return &GoTrue{client: c}
}

func (g *GoTrue) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := g.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, mapError(err)
	}
	return &Identity{
		UserID:      resp.User.ID.String(),
		Email:       resp.User.Email,
		DisplayName: metadataName(resp.User.UserMetadata),
		Token:       resp.AccessToken,
	}, nil
}

func (g *GoTrue) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := g.client.Signup(gotruetypes.SignupRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, mapError(err)
	}
	if resp.AccessToken != "" {
		return &Identity{
			UserID: resp.ID.String(),
			Email:  resp.Email,
			Token:  resp.AccessToken,
		}, nil
	}
	// Instances without auto-confirm return a bare user record; a
	// follow-up sign-in yields the token.
	return g.SignIn(ctx, email, password)
}

func (g *GoTrue) SignOut(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.client.WithToken(token).Logout(); err != nil {
		return mapError(err)
	}
	return nil
}

func (g *GoTrue) SendPasswordReset(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.client.Recover(gotruetypes.RecoverRequest{Email: email}); err != nil {
		return mapError(err)
	}
	return nil
}

func (g *GoTrue) SetDisplayName(ctx context.Context, token, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := g.client.WithToken(token).UpdateUser(gotruetypes.UpdateUserRequest{
		Data: map[string]interface{}{"display_name": name},
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func metadataName(meta map[string]interface{}) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta["display_name"].(string); ok {
		return v
	}
	return ""
}

// mapError folds provider-native failures into the closed AuthError
// set. GoTrue reports most failures as message text, so the mapping
// inspects the message; anything unrecognized becomes AuthUnknown
// rather than leaking provider detail upward.
func mapError(err error) error {
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return errs.NewAuthError(errs.AuthNetworkUnavailable, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid login credentials"),
		strings.Contains(msg, "invalid_grant"):
		return errs.NewAuthError(errs.AuthInvalidCredentials, err)
	case strings.Contains(msg, "already registered"),
		strings.Contains(msg, "already been registered"):
		return errs.NewAuthError(errs.AuthAccountExists, err)
	case strings.Contains(msg, "password should be"),
		strings.Contains(msg, "weak password"):
		return errs.NewAuthError(errs.AuthWeakCredential, err)
	case strings.Contains(msg, "banned"),
		strings.Contains(msg, "disabled"):
		return errs.NewAuthError(errs.AuthAccountDisabled, err)
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		return errs.NewAuthError(errs.AuthRateLimited, err)
	default:
		return errs.NewAuthError(errs.AuthUnknown, err)
	}
}
