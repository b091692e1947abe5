package api

import (
	"context"
	"fmt"

	"github.com/pitchside/pitchside-go/internal/types"
)

// Exchange trades an identity token for a backend session token.
// A 4xx answer comes back as an irrecoverable classified error so the
// session manager can distinguish credential rejection from a flaky
// network.
func Exchange(ctx context.Context, hc HTTPClient, baseURL string, req types.ExchangeRequest) (*types.ExchangeResponse, error) {
	url := fmt.Sprintf("%s/v1/auth/exchange", baseURL)
	return doJSON[types.ExchangeResponse](ctx, hc, "POST", url, req, "exchange")
}
