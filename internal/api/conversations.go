package api

import (
	"context"
	"fmt"

	"github.com/pitchside/pitchside-go/internal/types"
)

// ListMessages retrieves one page of a conversation thread, newest
// pages first per server ordering.
func ListMessages(ctx context.Context, hc HTTPClient, baseURL, conversationID string, page, pageSize int) (*types.Page[types.Message], error) {
	if err := types.ValidateIDPresent(conversationID, "conversationId"); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/conversations/%s/messages?page=%d&pageSize=%d", baseURL, conversationID, page, pageSize)
	return doJSON[types.Page[types.Message]](ctx, hc, "GET", url, nil, "list messages")
}

// SendMessage posts a message and returns the server-assigned record.
func SendMessage(ctx context.Context, hc HTTPClient, baseURL, conversationID string, req types.SendMessageRequest) (*types.Message, error) {
	if err := types.ValidateIDPresent(conversationID, "conversationId"); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/conversations/%s/messages", baseURL, conversationID)
	return doJSON[types.Message](ctx, hc, "POST", url, req, "send message")
}
