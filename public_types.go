package pitchside

import (
	"github.com/pitchside/pitchside-go/internal/channel"
	"github.com/pitchside/pitchside-go/internal/session"
	"github.com/pitchside/pitchside-go/internal/types"
)

// Public type aliases so SDK consumers can import only this package.
type (
	// Requests
	RegisterRequest = types.RegisterRequest

	// Domain entities
	Session      = types.Session
	UserSnapshot = types.UserSnapshot
	Post         = types.Post
	Match        = types.Match
	Message      = types.Message
	Notification = types.Notification

	// Session lifecycle
	SessionState        = session.State
	SessionSnapshot     = session.Snapshot
	SessionSubscription = session.Subscription

	// Real-time channel
	ChannelStatus     = channel.Status
	ChannelInfo       = channel.Info
	EventSubscription = channel.Subscription
)

// Session states.
const (
	SessionUninitialized   = session.Uninitialized
	SessionRestoring       = session.Restoring
	SessionAuthenticated   = session.Authenticated
	SessionUnauthenticated = session.Unauthenticated
	SessionRefreshing      = session.Refreshing
)

// Channel statuses.
const (
	ChannelDisconnected = channel.Disconnected
	ChannelConnecting   = channel.Connecting
	ChannelConnected    = channel.Connected
	ChannelReconnecting = channel.Reconnecting
)

// Channel event names for OnEvent.
const (
	EventPostNew         = channel.EventPostNew
	EventPostUpdated     = channel.EventPostUpdated
	EventMatchUpdated    = channel.EventMatchUpdated
	EventMessageNew      = channel.EventMessageNew
	EventNotificationNew = channel.EventNotificationNew
)
