package api

import (
	"context"
	"fmt"

	"github.com/pitchside/pitchside-go/internal/types"
)

// ListPosts retrieves one page of the feed.
func ListPosts(ctx context.Context, hc HTTPClient, baseURL string, page, pageSize int) (*types.Page[types.Post], error) {
	url := fmt.Sprintf("%s/v1/feed?page=%d&pageSize=%d", baseURL, page, pageSize)
	return doJSON[types.Page[types.Post]](ctx, hc, "GET", url, nil, "list posts")
}

// LikePost records a like and returns the server-confirmed post.
func LikePost(ctx context.Context, hc HTTPClient, baseURL, postID string) (*types.Post, error) {
	if err := types.ValidateIDPresent(postID, "postId"); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/posts/%s/like", baseURL, postID)
	return doJSON[types.Post](ctx, hc, "POST", url, nil, "like post")
}

// UnlikePost removes a like and returns the server-confirmed post.
func UnlikePost(ctx context.Context, hc HTTPClient, baseURL, postID string) (*types.Post, error) {
	if err := types.ValidateIDPresent(postID, "postId"); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/posts/%s/like", baseURL, postID)
	return doJSON[types.Post](ctx, hc, "DELETE", url, nil, "unlike post")
}
