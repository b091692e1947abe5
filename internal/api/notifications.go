package api

import (
	"context"
	"fmt"

	"github.com/pitchside/pitchside-go/internal/types"
)

// ListNotifications retrieves one page of the notification feed.
func ListNotifications(ctx context.Context, hc HTTPClient, baseURL string, page, pageSize int) (*types.Page[types.Notification], error) {
	url := fmt.Sprintf("%s/v1/notifications?page=%d&pageSize=%d", baseURL, page, pageSize)
	return doJSON[types.Page[types.Notification]](ctx, hc, "GET", url, nil, "list notifications")
}

// MarkNotificationRead flags one notification and returns the confirmed
// record.
func MarkNotificationRead(ctx context.Context, hc HTTPClient, baseURL, notificationID string) (*types.Notification, error) {
	if err := types.ValidateIDPresent(notificationID, "notificationId"); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/notifications/%s/read", baseURL, notificationID)
	return doJSON[types.Notification](ctx, hc, "POST", url, nil, "mark notification read")
}
