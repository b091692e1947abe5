package channel

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

// Conn is the slice of a websocket connection the manager needs.
// *websocket.Conn satisfies it; tests substitute scripted fakes.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a raw connection to the real-time endpoint.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (Conn, error)
}

type wsDialer struct {
	d *websocket.Dialer
}

// NewWebsocketDialer returns the production gorilla-backed dialer.
func NewWebsocketDialer() Dialer {
	return &wsDialer{d: websocket.DefaultDialer}
}

func (w *wsDialer) DialContext(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, resp, err := w.d.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}
