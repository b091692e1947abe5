package api

import (
	"context"
	"fmt"

	"github.com/pitchside/pitchside-go/internal/types"
)

// ListMatches retrieves one page of match listings.
func ListMatches(ctx context.Context, hc HTTPClient, baseURL string, page, pageSize int) (*types.Page[types.Match], error) {
	url := fmt.Sprintf("%s/v1/matches?page=%d&pageSize=%d", baseURL, page, pageSize)
	return doJSON[types.Page[types.Match]](ctx, hc, "GET", url, nil, "list matches")
}

// JoinMatch signs the current user up and returns the confirmed match.
func JoinMatch(ctx context.Context, hc HTTPClient, baseURL, matchID string) (*types.Match, error) {
	if err := types.ValidateIDPresent(matchID, "matchId"); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/matches/%s/join", baseURL, matchID)
	return doJSON[types.Match](ctx, hc, "POST", url, nil, "join match")
}

// LeaveMatch withdraws the current user and returns the confirmed match.
func LeaveMatch(ctx context.Context, hc HTTPClient, baseURL, matchID string) (*types.Match, error) {
	if err := types.ValidateIDPresent(matchID, "matchId"); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/matches/%s/join", baseURL, matchID)
	return doJSON[types.Match](ctx, hc, "DELETE", url, nil, "leave match")
}
