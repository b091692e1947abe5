// Package channel maintains the single long-lived event connection to
// the backend: authenticated handshake, bounded exponential reconnect,
// ordered inbound dispatch, and outbound command emission.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/pitchside/pitchside-go/internal/dispatch"
	"github.com/pitchside/pitchside-go/internal/errs"
)

// Status mirrors the connection lifecycle.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
	Reconnecting
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Handler receives one inbound event.
type Handler func(event string, data json.RawMessage)

// TokenFunc yields the session token for the handshake.
type TokenFunc func(ctx context.Context) (string, error)

// Config tunes the manager. Zero values take the production defaults.
type Config struct {
	URL                  string
	HandshakeTimeout     time.Duration // default 10s
	BaseDelay            time.Duration // default 1s
	MaxReconnectAttempts int           // default 5
}

// Info is a point-in-time view of the connection.
type Info struct {
	Status           Status
	ConnectionID     string
	ReconnectAttempt int
	LastError        error
}

// Manager owns the connection state machine.
type Manager struct {
	cfg    Config
	dialer Dialer
	token  TokenFunc
	// refreshToken, when set, is invoked once per connect cycle after a
	// rejected handshake so the next attempt carries a fresh credential.
	refreshToken func(ctx context.Context) error
	queue        *dispatch.Queue
	log          zerolog.Logger

	// writeMu serializes outbound frames: the websocket permits at
	// most one concurrent writer.
	writeMu sync.Mutex

	mu           sync.Mutex
	status       Status
	connID       string
	attempt      int
	lastErr      error
	conn         Conn
	handlers     map[string]map[int]Handler
	nextHandler  int
	loopCancel   context.CancelFunc
	loopDone     chan struct{}
	triedAuthFix bool
}

// NewManager wires the manager. Nothing dials until Connect.
func NewManager(cfg Config, dialer Dialer, token TokenFunc, refreshToken func(ctx context.Context) error, queue *dispatch.Queue, log zerolog.Logger) *Manager {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	return &Manager{
		cfg:          cfg,
		dialer:       dialer,
		token:        token,
		refreshToken: refreshToken,
		queue:        queue,
		log:          log.With().Str("component", "channel").Logger(),
		handlers:     make(map[string]map[int]Handler),
	}
}

// Info returns the current connection view.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Info{
		Status:           m.status,
		ConnectionID:     m.connID,
		ReconnectAttempt: m.attempt,
		LastError:        m.lastErr,
	}
}

// Connect arms the connection loop. Calling it while already Connected
// (or while a loop is live) is a no-op success; after a terminal
// give-up it re-arms from a clean attempt counter.
func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loopDone != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.loopCancel = cancel
	m.loopDone = make(chan struct{})
	m.attempt = 0
	m.lastErr = nil
	m.triedAuthFix = false
	go m.run(ctx, m.loopDone)
	return nil
}

// Disconnect tears the connection down immediately and clears every
// registered listener, so each reconnect cycle starts from a clean
// slate. Safe to call repeatedly.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel := m.loopCancel
	done := m.loopDone
	conn := m.conn
	m.loopCancel = nil
	m.loopDone = nil
	m.conn = nil
	m.connID = ""
	m.status = Disconnected
	m.handlers = make(map[string]map[int]Handler)
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// On registers a handler for one event name. Handlers are additive; the
// returned subscription releases exactly this registration and is a
// no-op if Disconnect already cleared the slate.
func (m *Manager) On(event string, h Handler) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers[event] == nil {
		m.handlers[event] = make(map[int]Handler)
	}
	id := m.nextHandler
	m.nextHandler++
	m.handlers[event][id] = h

	return &Subscription{cancel: func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if hs := m.handlers[event]; hs != nil {
			delete(hs, id)
		}
	}}
}

// Send emits one command. The channel never queues across a disconnect:
// when not Connected the command is dropped with a logged warning, and
// callers needing delivery guarantees must use the REST layer instead.
func (m *Manager) Send(event string, payload any) {
	m.mu.Lock()
	conn := m.conn
	status := m.status
	m.mu.Unlock()

	if status != Connected || conn == nil {
		m.log.Warn().Str("event", event).Msg("send dropped: channel not connected")
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.log.Warn().Err(err).Str("event", event).Msg("send dropped: payload not serializable")
		return
	}
	m.writeMu.Lock()
	err = conn.WriteJSON(Frame{Event: event, Data: data})
	m.writeMu.Unlock()
	if err != nil {
		m.log.Warn().Err(err).Str("event", event).Msg("send failed; read loop will reconnect")
	}
}

// JoinRoom subscribes this connection to a conversation room.
func (m *Manager) JoinRoom(roomID string) { m.Send(EventRoomJoin, roomPayload{RoomID: roomID}) }

// LeaveRoom unsubscribes from a conversation room.
func (m *Manager) LeaveRoom(roomID string) { m.Send(EventRoomLeave, roomPayload{RoomID: roomID}) }

// StartTyping signals a typing indicator in a room.
func (m *Manager) StartTyping(roomID string) { m.Send(EventTypingStart, roomPayload{RoomID: roomID}) }

// StopTyping clears the typing indicator in a room.
func (m *Manager) StopTyping(roomID string) { m.Send(EventTypingStop, roomPayload{RoomID: roomID}) }

// ------------------------------
// connection loop
// ------------------------------

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = m.cfg.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0 // documented schedule floor: 1s, 2s, 4s, 8s, 16s
	exp.MaxInterval = 10 * time.Minute
	exp.MaxElapsedTime = 0
	exp.Reset()

	for {
		m.setStatus(Connecting, nil)
		conn, connID, err := m.dial(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			m.mu.Lock()
			m.conn = conn
			m.connID = connID
			m.attempt = 0
			m.lastErr = nil
			m.triedAuthFix = false
			m.status = Connected
			m.mu.Unlock()
			exp.Reset()
			m.log.Info().Str("connection_id", connID).Msg("channel connected")

			readErr := m.readLoop(ctx, conn)
			if ctx.Err() != nil {
				return
			}
			m.log.Warn().Err(readErr).Msg("transport dropped, reconnecting")
			err = errs.NewChannelError(errs.ChannelTransportDropped, readErr)
			m.mu.Lock()
			m.conn = nil
			m.connID = ""
			m.mu.Unlock()
		}

		m.mu.Lock()
		m.attempt++
		attempt := m.attempt
		m.mu.Unlock()

		if attempt > m.cfg.MaxReconnectAttempts {
			// Terminal give-up: surfaced once, re-armed only by an
			// explicit Connect.
			giveUp := errs.NewChannelError(errs.ChannelMaxReconnectExceeded, err)
			m.log.Error().Err(giveUp).Int("attempts", attempt-1).Msg("reconnect budget exhausted")
			m.mu.Lock()
			m.status = Disconnected
			m.lastErr = giveUp
			cancel := m.loopCancel
			m.loopCancel = nil
			m.loopDone = nil
			m.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			return
		}

		m.setStatus(Reconnecting, err)
		reconnectsTotal.Inc()

		select {
		case <-time.After(exp.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}
}

// dial opens and authenticates one connection within the handshake
// budget.
func (m *Manager) dial(ctx context.Context) (Conn, string, error) {
	hctx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	defer cancel()

	token, err := m.token(hctx)
	if err != nil {
		return nil, "", errs.NewChannelError(errs.ChannelHandshakeRejected, err)
	}

	conn, err := m.dialer.DialContext(hctx, m.cfg.URL, nil)
	if err != nil {
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			return nil, "", errs.NewChannelError(errs.ChannelHandshakeTimeout, err)
		}
		return nil, "", errs.NewChannelError(errs.ChannelHandshakeRejected, err)
	}

	data, _ := json.Marshal(handshakePayload{Token: token})
	if err := conn.WriteJSON(Frame{Event: EventHandshake, Data: data}); err != nil {
		_ = conn.Close()
		return nil, "", errs.NewChannelError(errs.ChannelHandshakeRejected, err)
	}

	// ReadJSON has no deadline of its own; enforce the budget by
	// closing the connection when the clock runs out.
	type ackResult struct {
		frame Frame
		err   error
	}
	ackCh := make(chan ackResult, 1)
	go func() {
		var f Frame
		err := conn.ReadJSON(&f)
		ackCh <- ackResult{frame: f, err: err}
	}()

	select {
	case <-hctx.Done():
		_ = conn.Close()
		return nil, "", errs.NewChannelError(errs.ChannelHandshakeTimeout, hctx.Err())
	case ack := <-ackCh:
		if ack.err != nil {
			_ = conn.Close()
			return nil, "", errs.NewChannelError(errs.ChannelHandshakeRejected, ack.err)
		}
		if ack.frame.Event != EventConnected {
			_ = conn.Close()
			m.maybeRefreshToken(ctx)
			return nil, "", errs.NewChannelError(errs.ChannelHandshakeRejected,
				fmt.Errorf("server answered %q", ack.frame.Event))
		}
		var payload connectedPayload
		if err := json.Unmarshal(ack.frame.Data, &payload); err != nil || payload.ConnectionID == "" {
			_ = conn.Close()
			return nil, "", errs.NewChannelError(errs.ChannelHandshakeRejected,
				fmt.Errorf("malformed connected ack"))
		}
		return conn, payload.ConnectionID, nil
	}
}

// maybeRefreshToken asks the session manager for a fresh credential
// after a rejected handshake, at most once per connect cycle. It runs
// off the connection loop: a refresh that ends the session calls back
// into Disconnect, which waits for the loop to exit.
func (m *Manager) maybeRefreshToken(ctx context.Context) {
	m.mu.Lock()
	if m.refreshToken == nil || m.triedAuthFix {
		m.mu.Unlock()
		return
	}
	m.triedAuthFix = true
	m.mu.Unlock()

	go func() {
		rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.refreshToken(rctx); err != nil {
			m.log.Warn().Err(err).Msg("token refresh after rejected handshake failed")
		}
	}()
}

// readLoop pumps inbound frames in server-delivery order into the
// dispatch lane until the transport drops or ctx is cancelled.
func (m *Manager) readLoop(ctx context.Context, conn Conn) error {
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		eventsReceivedTotal.Inc()
		frame := f
		if err := m.queue.Submit(ctx, dispatch.JobFunc(func(jobCtx context.Context) error {
			m.emit(frame)
			return nil
		})); err != nil {
			m.log.Warn().Err(err).Str("event", f.Event).Msg("inbound event dropped")
		}
	}
}

// emit delivers one frame to every registered handler. A panicking
// handler is isolated so the remaining handlers still see the event.
func (m *Manager) emit(f Frame) {
	m.mu.Lock()
	hs := make([]Handler, 0, len(m.handlers[f.Event]))
	for _, h := range m.handlers[f.Event] {
		hs = append(hs, h)
	}
	m.mu.Unlock()

	for _, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error().Interface("panic", r).Str("event", f.Event).Msg("event handler panicked")
				}
			}()
			h(f.Event, f.Data)
		}()
	}
}

func (m *Manager) setStatus(s Status, lastErr error) {
	m.mu.Lock()
	m.status = s
	if lastErr != nil {
		m.lastErr = lastErr
	}
	m.mu.Unlock()
}

// Subscription is a scoped handler registration.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel releases the handler. Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}
