// Package pitchside is the Go client SDK for the Pitchside backend:
// identity sessions, the real-time event channel, and the synchronized
// local cache of feed, match, conversation, and notification data.
package pitchside

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pitchside/pitchside-go/internal/api"
	"github.com/pitchside/pitchside-go/internal/cache"
	"github.com/pitchside/pitchside-go/internal/channel"
	"github.com/pitchside/pitchside-go/internal/credstore"
	"github.com/pitchside/pitchside-go/internal/dispatch"
	"github.com/pitchside/pitchside-go/internal/idp"
	"github.com/pitchside/pitchside-go/internal/session"
	"github.com/pitchside/pitchside-go/internal/types"
)

// Client is the SDK entry point. Construct with New, release with
// Close. All methods are safe for concurrent use.
type Client struct {
	cfg      Config
	http     *http.Client
	log      zerolog.Logger
	pageSize int

	store    credstore.Store
	provider idp.Provider
	session  *session.Manager
	queue    *dispatch.Queue
	dialer   channel.Dialer
	channel  *channel.Manager

	posts         *cache.Collection[types.Post]
	matches       *cache.Collection[types.Match]
	notifications *cache.Collection[types.Notification]

	mu            sync.Mutex
	conversations map[string]*cache.Collection[types.Message]
	channelArmed  bool

	sessionSub *session.Subscription
	closedOnce uint32
}

// New wires a Client from cfg. APIURL is required; the identity
// provider settings are required unless a provider is injected.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("pitchside: APIURL is required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}

	c := &Client{
		cfg:           cfg,
		http:          &http.Client{Timeout: cfg.HTTPTimeout},
		log:           zerolog.New(os.Stderr).With().Timestamp().Str("sdk", "pitchside").Logger(),
		pageSize:      cfg.PageSize,
		conversations: make(map[string]*cache.Collection[types.Message]),
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.store == nil {
		store, err := defaultStore(cfg)
		if err != nil {
			return nil, err
		}
		c.store = store
	}
	if c.provider == nil {
		if cfg.IdentityURL == "" || cfg.IdentityAPIKey == "" {
			return nil, fmt.Errorf("pitchside: identity provider configuration missing")
		}
		c.provider = idp.NewGoTrue(cfg.IdentityProjectRef, cfg.IdentityAPIKey, cfg.IdentityURL)
	}
	if c.dialer == nil {
		c.dialer = channel.NewWebsocketDialer()
	}

	// Bearer wrapper goes on last so every request carries the token
	// that is current at send time, not at construction time.
	c.wrapTransportWithSessionToken()

	c.session = session.NewManager(c.store, c.provider, c.exchangeFunc(), c.log)

	qcfg, err := dispatch.LoadConfig()
	if err != nil {
		c.log.Warn().Err(err).Msg("dispatch config invalid, using defaults")
		qcfg = dispatch.Config{}
	}
	c.queue = dispatch.NewQueue(qcfg, c.log)

	c.channel = channel.NewManager(
		channel.Config{URL: cfg.SocketURL},
		c.dialer,
		c.channelToken,
		c.channelTokenRefresh,
		c.queue,
		c.log,
	)

	c.posts = cache.NewCollection[types.Post](types.ResourcePosts, c.log)
	c.matches = cache.NewCollection[types.Match](types.ResourceMatches, c.log)
	c.notifications = cache.NewCollection[types.Notification](types.ResourceNotifications, c.log)

	c.sessionSub = c.session.Subscribe(c.onSessionChange)
	return c, nil
}

func defaultStore(cfg Config) (credstore.Store, error) {
	if cfg.CredentialPath != "" {
		return credstore.New(credstore.StoreTypeFile, credstore.WithFilePath(cfg.CredentialPath))
	}
	return credstore.New(credstore.StoreTypeMemory)
}

func defaultTransport() http.RoundTripper { return http.DefaultTransport }

// wrapTransportWithSessionToken installs the bearer wrapper that reads
// the live session token per request.
func (c *Client) wrapTransportWithSessionToken() {
	base := c.http.Transport
	if base == nil {
		base = defaultTransport()
	}
	c.http.Transport = &sessionTransport{
		base: base,
		token: func() (string, bool) {
			if c.session == nil {
				return "", false
			}
			return c.session.Token()
		},
	}
}

// sessionTransport adds Authorization: Bearer <session token> when a
// session is live. Requests made while logged out go out bare; the
// backend answers 401 and the error taxonomy takes over.
type sessionTransport struct {
	base  http.RoundTripper
	token func() (string, bool)
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, ok := t.token()
	if !ok {
		return t.base.RoundTrip(req)
	}
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+tok)
	return t.base.RoundTrip(cloned)
}

func (c *Client) exchangeFunc() session.ExchangeFunc {
	return func(ctx context.Context, req types.ExchangeRequest) (*types.ExchangeResponse, error) {
		return api.Exchange(ctx, c.http, c.cfg.APIURL, req)
	}
}

func (c *Client) channelToken(ctx context.Context) (string, error) {
	tok, ok := c.session.Token()
	if !ok {
		return "", session.ErrNotAuthenticated
	}
	return tok, nil
}

func (c *Client) channelTokenRefresh(ctx context.Context) error {
	_, err := c.session.Refresh(ctx)
	return err
}

// onSessionChange arms the channel while a session is live and tears
// everything user-scoped down when it ends.
func (c *Client) onSessionChange(snap session.Snapshot) {
	switch snap.State {
	case session.Authenticated:
		c.armChannel()
	case session.Unauthenticated:
		c.disarmChannel()
		c.clearCaches()
	}
}

func (c *Client) armChannel() {
	if c.cfg.SocketURL == "" {
		return
	}
	c.mu.Lock()
	if c.channelArmed {
		c.mu.Unlock()
		return
	}
	c.channelArmed = true
	c.mu.Unlock()

	// Disconnect clears channel handlers, so each arming cycle
	// registers a fresh set.
	c.registerPushHandlers()
	if err := c.channel.Connect(); err != nil {
		c.log.Error().Err(err).Msg("channel connect failed")
	}
}

func (c *Client) disarmChannel() {
	c.mu.Lock()
	armed := c.channelArmed
	c.channelArmed = false
	c.mu.Unlock()
	if armed {
		c.channel.Disconnect()
	}
}

// registerPushHandlers mirrors server pushes into the caches.
func (c *Client) registerPushHandlers() {
	c.channel.On(channel.EventPostNew, c.applyPostPush)
	c.channel.On(channel.EventPostUpdated, c.applyPostPush)
	c.channel.On(channel.EventMatchUpdated, func(_ string, data json.RawMessage) {
		var m types.Match
		if err := json.Unmarshal(data, &m); err != nil {
			c.log.Warn().Err(err).Msg("malformed match push dropped")
			return
		}
		c.matches.ApplyRemote(m)
	})
	c.channel.On(channel.EventMessageNew, func(_ string, data json.RawMessage) {
		var m types.Message
		if err := json.Unmarshal(data, &m); err != nil {
			c.log.Warn().Err(err).Msg("malformed message push dropped")
			return
		}
		c.conversation(m.ConversationID).ApplyRemote(m)
	})
	c.channel.On(channel.EventNotificationNew, func(_ string, data json.RawMessage) {
		var n types.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			c.log.Warn().Err(err).Msg("malformed notification push dropped")
			return
		}
		c.notifications.ApplyRemote(n)
	})
}

func (c *Client) applyPostPush(_ string, data json.RawMessage) {
	var p types.Post
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Warn().Err(err).Msg("malformed post push dropped")
		return
	}
	c.posts.ApplyRemote(p)
}

func (c *Client) conversation(conversationID string) *cache.Collection[types.Message] {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, ok := c.conversations[conversationID]
	if !ok {
		col = cache.NewCollection[types.Message](types.ResourceMessages(conversationID), c.log)
		c.conversations[conversationID] = col
	}
	return col
}

func (c *Client) clearCaches() {
	c.posts.Clear()
	c.matches.Clear()
	c.notifications.Clear()
	c.mu.Lock()
	c.conversations = make(map[string]*cache.Collection[types.Message])
	c.mu.Unlock()
}

// Close releases the client: channel torn down, dispatch lane drained,
// credential store closed. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	if c.sessionSub != nil {
		c.sessionSub.Cancel()
	}
	c.disarmChannel()
	c.channel.Disconnect()
	c.queue.Stop()
	return c.store.Close()
}

// Flush blocks until every event received so far has been handed to
// its handlers. Mostly useful in tests and teardown paths.
func (c *Client) Flush(ctx context.Context) error {
	return c.queue.Barrier(ctx)
}

// --------------------------------------------------------------------
// Session operations - delegated to internal/session
// --------------------------------------------------------------------

// Start restores a previously persisted session, if any. Call once at
// process start. A nil session with nil error means no stored
// credentials existed; a returned transient error may be retried.
func (c *Client) Start(ctx context.Context) (*Session, error) {
	return c.session.Restore(ctx)
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.session.Login(ctx, email, password)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	return c.session.Register(ctx, req)
}

// Logout ends the session. It always succeeds locally; the remote
// sign-out is best-effort.
func (c *Client) Logout(ctx context.Context) {
	c.session.Logout(ctx)
}

// RefreshSession trades the stored identity token for a fresh session
// token. Concurrent callers share one in-flight refresh.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	return c.session.Refresh(ctx)
}

// SendPasswordReset asks the identity provider to email a reset link.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.session.SendPasswordReset(ctx, email)
}

// CurrentSession returns the present session snapshot.
func (c *Client) CurrentSession() SessionSnapshot {
	return c.session.Current()
}

// SubscribeSession registers fn for session changes. fn runs
// immediately with the current snapshot, then on every transition.
func (c *Client) SubscribeSession(fn func(SessionSnapshot)) *SessionSubscription {
	return c.session.Subscribe(fn)
}

// --------------------------------------------------------------------
// Feed operations
// --------------------------------------------------------------------

// FetchPosts loads one page of the feed into the cache and returns the
// merged snapshot. Page 1 is a refresh and replaces the cached feed;
// on error the cache is left untouched.
func (c *Client) FetchPosts(ctx context.Context, page int) ([]Post, error) {
	resp, err := api.ListPosts(ctx, c.http, c.cfg.APIURL, page, c.pageSize)
	if err != nil {
		fetchFailuresTotal.Inc()
		return c.posts.Items(), err
	}
	if page <= 1 {
		c.posts.Clear()
	}
	c.posts.ApplyPage(*resp, c.pageSize)
	return c.posts.Items(), nil
}

// Posts returns the cached feed, newest first.
func (c *Client) Posts() []Post { return c.posts.Items() }

// HasMorePosts reports whether another feed page is believed to exist.
func (c *Client) HasMorePosts() bool { return c.posts.HasMore() }

// LikePost optimistically marks the post liked, then confirms with the
// backend. On rejection the cached post reverts exactly.
func (c *Client) LikePost(ctx context.Context, postID string) error {
	if err := types.ValidateIDPresent(postID, "postId"); err != nil {
		return err
	}
	m, _, err := c.posts.Mutate(postID, func(p types.Post) types.Post {
		if !p.IsLiked {
			p.IsLiked = true
			p.LikeCount++
		}
		return p
	})
	if err != nil {
		return err
	}
	server, apiErr := api.LikePost(ctx, c.http, c.cfg.APIURL, postID)
	return resolveMutation(m, c.posts, server, apiErr)
}

// UnlikePost is the inverse of LikePost, with the same optimistic
// semantics.
func (c *Client) UnlikePost(ctx context.Context, postID string) error {
	if err := types.ValidateIDPresent(postID, "postId"); err != nil {
		return err
	}
	m, _, err := c.posts.Mutate(postID, func(p types.Post) types.Post {
		if p.IsLiked {
			p.IsLiked = false
			if p.LikeCount > 0 {
				p.LikeCount--
			}
		}
		return p
	})
	if err != nil {
		return err
	}
	server, apiErr := api.UnlikePost(ctx, c.http, c.cfg.APIURL, postID)
	return resolveMutation(m, c.posts, server, apiErr)
}

// --------------------------------------------------------------------
// Match operations
// --------------------------------------------------------------------

// FetchMatches loads one page of match listings into the cache.
func (c *Client) FetchMatches(ctx context.Context, page int) ([]Match, error) {
	resp, err := api.ListMatches(ctx, c.http, c.cfg.APIURL, page, c.pageSize)
	if err != nil {
		fetchFailuresTotal.Inc()
		return c.matches.Items(), err
	}
	if page <= 1 {
		c.matches.Clear()
	}
	c.matches.ApplyPage(*resp, c.pageSize)
	return c.matches.Items(), nil
}

// Matches returns the cached match listings.
func (c *Client) Matches() []Match { return c.matches.Items() }

// HasMoreMatches reports whether another listings page is believed to
// exist.
func (c *Client) HasMoreMatches() bool { return c.matches.HasMore() }

// JoinMatch optimistically joins a match.
func (c *Client) JoinMatch(ctx context.Context, matchID string) error {
	if err := types.ValidateIDPresent(matchID, "matchId"); err != nil {
		return err
	}
	m, _, err := c.matches.Mutate(matchID, func(mt types.Match) types.Match {
		if !mt.IsJoined {
			mt.IsJoined = true
			mt.PlayerCount++
		}
		return mt
	})
	if err != nil {
		return err
	}
	server, apiErr := api.JoinMatch(ctx, c.http, c.cfg.APIURL, matchID)
	return resolveMutation(m, c.matches, server, apiErr)
}

// LeaveMatch optimistically leaves a match.
func (c *Client) LeaveMatch(ctx context.Context, matchID string) error {
	if err := types.ValidateIDPresent(matchID, "matchId"); err != nil {
		return err
	}
	m, _, err := c.matches.Mutate(matchID, func(mt types.Match) types.Match {
		if mt.IsJoined {
			mt.IsJoined = false
			if mt.PlayerCount > 0 {
				mt.PlayerCount--
			}
		}
		return mt
	})
	if err != nil {
		return err
	}
	server, apiErr := api.LeaveMatch(ctx, c.http, c.cfg.APIURL, matchID)
	return resolveMutation(m, c.matches, server, apiErr)
}

// --------------------------------------------------------------------
// Conversation operations
// --------------------------------------------------------------------

// FetchMessages loads one page of a conversation thread into its
// cache.
func (c *Client) FetchMessages(ctx context.Context, conversationID string, page int) ([]Message, error) {
	if err := types.ValidateIDPresent(conversationID, "conversationId"); err != nil {
		return nil, err
	}
	col := c.conversation(conversationID)
	resp, err := api.ListMessages(ctx, c.http, c.cfg.APIURL, conversationID, page, c.pageSize)
	if err != nil {
		fetchFailuresTotal.Inc()
		return col.Items(), err
	}
	if page <= 1 {
		col.Clear()
	}
	col.ApplyPage(*resp, c.pageSize)
	return col.Items(), nil
}

// Messages returns the cached thread of one conversation.
func (c *Client) Messages(conversationID string) []Message {
	return c.conversation(conversationID).Items()
}

// SendMessage inserts the message optimistically with a synthetic ID,
// sends it, and replaces the synthetic copy with the server's
// authoritative one. On failure the synthetic message disappears.
func (c *Client) SendMessage(ctx context.Context, conversationID, body string) (*Message, error) {
	if err := types.ValidateIDPresent(conversationID, "conversationId"); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(body, "body"); err != nil {
		return nil, err
	}

	col := c.conversation(conversationID)
	snap := c.session.Current()
	now := time.Now().UTC()
	local := types.Message{
		ID:             "local-" + uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       snap.Session.IdentityID,
		SenderName:     snap.Session.DisplayName,
		Body:           body,
		SentAt:         now,
		UpdatedAt:      now,
	}
	m, err := col.Insert(local)
	if err != nil {
		return nil, err
	}

	server, apiErr := api.SendMessage(ctx, c.http, c.cfg.APIURL, conversationID, types.SendMessageRequest{Body: body})
	if apiErr != nil {
		m.Rollback()
		optimisticRollbacksTotal.Inc()
		return nil, apiErr
	}
	// The server copy carries the real ID, so the synthetic entry is
	// removed rather than committed, and the real one merged in.
	m.Rollback()
	col.ApplyRemote(*server)
	return server, nil
}

// --------------------------------------------------------------------
// Notification operations
// --------------------------------------------------------------------

// FetchNotifications loads one page of notifications into the cache.
func (c *Client) FetchNotifications(ctx context.Context, page int) ([]Notification, error) {
	resp, err := api.ListNotifications(ctx, c.http, c.cfg.APIURL, page, c.pageSize)
	if err != nil {
		fetchFailuresTotal.Inc()
		return c.notifications.Items(), err
	}
	if page <= 1 {
		c.notifications.Clear()
	}
	c.notifications.ApplyPage(*resp, c.pageSize)
	return c.notifications.Items(), nil
}

// Notifications returns the cached notifications.
func (c *Client) Notifications() []Notification { return c.notifications.Items() }

// MarkNotificationRead optimistically flips the read flag.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	if err := types.ValidateIDPresent(notificationID, "notificationId"); err != nil {
		return err
	}
	m, _, err := c.notifications.Mutate(notificationID, func(n types.Notification) types.Notification {
		n.IsRead = true
		return n
	})
	if err != nil {
		return err
	}
	server, apiErr := api.MarkNotificationRead(ctx, c.http, c.cfg.APIURL, notificationID)
	return resolveMutation(m, c.notifications, server, apiErr)
}

// resolveMutation finishes one optimistic mutation against the API
// outcome. A nil handle means the item was not cached; the server copy
// is still merged so the cache warms up.
func resolveMutation[T cache.Item](m *cache.Mutation[T], col *cache.Collection[T], server *T, apiErr error) error {
	if apiErr != nil {
		if m != nil {
			m.Rollback()
			optimisticRollbacksTotal.Inc()
		}
		return apiErr
	}
	if m != nil {
		m.Commit(server)
	} else if server != nil {
		col.ApplyRemote(*server)
	}
	return nil
}

// --------------------------------------------------------------------
// Channel operations - delegated to internal/channel
// --------------------------------------------------------------------

// ChannelInfo returns the live connection view.
func (c *Client) ChannelInfo() ChannelInfo { return c.channel.Info() }

// OnEvent registers a handler for one raw channel event. The handler
// set is cleared on disconnect; re-register after re-arming.
func (c *Client) OnEvent(event string, fn func(event string, data json.RawMessage)) *EventSubscription {
	return c.channel.On(event, channel.Handler(fn))
}

// SendEvent emits one raw command on the channel. Dropped with a
// warning when not connected.
func (c *Client) SendEvent(event string, payload any) { c.channel.Send(event, payload) }

// JoinRoom subscribes the connection to a conversation room.
func (c *Client) JoinRoom(conversationID string) { c.channel.JoinRoom(conversationID) }

// LeaveRoom unsubscribes the connection from a conversation room.
func (c *Client) LeaveRoom(conversationID string) { c.channel.LeaveRoom(conversationID) }

// StartTyping signals a typing indicator in a room.
func (c *Client) StartTyping(conversationID string) { c.channel.StartTyping(conversationID) }

// StopTyping clears the typing indicator in a room.
func (c *Client) StopTyping(conversationID string) { c.channel.StopTyping(conversationID) }
