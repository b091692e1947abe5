// Package session owns the authentication lifecycle: it is the single
// source of truth for who the current user is and whether their
// credential is valid. All credential store writes in the SDK go
// through this manager.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pitchside/pitchside-go/internal/credstore"
	"github.com/pitchside/pitchside-go/internal/errs"
	"github.com/pitchside/pitchside-go/internal/idp"
	"github.com/pitchside/pitchside-go/internal/types"
)

// State is the manager's position in the authentication lifecycle.
type State int

const (
	Uninitialized State = iota
	Restoring
	Authenticated
	Unauthenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNotAuthenticated is returned by Refresh when no session is live.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// ErrRefreshSuperseded is returned when a refresh resolved after logout
// already tore the session down; its result is discarded.
var ErrRefreshSuperseded = errors.New("session: refresh superseded by logout")

// ExchangeFunc trades an identity token for a backend session token.
type ExchangeFunc func(ctx context.Context, req types.ExchangeRequest) (*types.ExchangeResponse, error)

// Manager drives the session state machine.
type Manager struct {
	store    credstore.Store
	provider idp.Provider
	exchange ExchangeFunc
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	state   State
	session types.Session
	gen     uint64 // bumped by logout; fences stale refreshes

	refreshGroup singleflight.Group

	subs *subscribers
}

// NewManager wires the manager to its collaborators. Nothing runs until
// Restore, Login, or Register is called.
func NewManager(store credstore.Store, provider idp.Provider, exchange ExchangeFunc, log zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		provider: provider,
		exchange: exchange,
		log:      log.With().Str("component", "session").Logger(),
		now:      time.Now,
		state:    Uninitialized,
		subs:     newSubscribers(),
	}
}

// Snapshot is the read-only view handed to subscribers.
type Snapshot struct {
	State           State
	Session         types.Session
	IsAuthenticated bool
}

// Current returns the present snapshot.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Token returns the live session token, if any. Used by the bearer
// transport and the channel handshake.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.IsAuthenticated || m.session.SessionToken == "" {
		return "", false
	}
	return m.session.SessionToken, true
}

// Subscribe registers fn and immediately invokes it with the current
// snapshot, so a late subscriber never misses the state it joined in.
func (m *Manager) Subscribe(fn func(Snapshot)) *Subscription {
	sub := m.subs.add(fn)
	fn(m.Current())
	return sub
}

// Restore attempts silent session restoration from the credential
// store: called once at process start. A complete stored set is
// verified against the backend; anything else lands in Unauthenticated.
// A transient network failure during verification is returned to the
// caller (who may retry Restore) without clearing the stored set.
func (m *Manager) Restore(ctx context.Context) (*types.Session, error) {
	m.transition(Restoring, types.Session{})

	set, err := m.store.Read(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("credential read failed")
		m.transition(Unauthenticated, types.Session{})
		return nil, fmt.Errorf("session: restore: %w", err)
	}
	if !set.Complete() {
		if set != nil {
			// Partial record: corrupt by definition, force re-auth.
			m.log.Warn().Msg("partial credential set, clearing")
			m.clearStore(ctx)
		}
		m.transition(Unauthenticated, types.Session{})
		return nil, nil
	}

	gen := m.generation()
	resp, err := m.exchange(ctx, types.ExchangeRequest{
		IdentityToken:  set.IdentityToken,
		ProviderUserID: set.UserSnapshot.IdentityID,
		Email:          set.UserSnapshot.Email,
		DisplayName:    set.UserSnapshot.DisplayName,
	})
	if err != nil {
		if errs.IsAuthStatus(err) {
			m.clearStore(ctx)
			m.transition(Unauthenticated, types.Session{})
			return nil, mapExchangeError(err)
		}
		m.transition(Unauthenticated, types.Session{})
		return nil, err
	}

	sess, err := m.commit(ctx, gen, set.IdentityToken, set.UserSnapshot, resp.SessionToken)
	if err != nil {
		return nil, err
	}
	m.log.Info().Str("identity_id", sess.IdentityID).Msg("session restored")
	return sess, nil
}

// Login authenticates against the identity provider, exchanges the
// identity token for a session token, persists the credential set, and
// transitions to Authenticated.
func (m *Manager) Login(ctx context.Context, email, password string) (*types.Session, error) {
	if err := types.ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	identity, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, identity)
}

// Register creates an account, best-effort sets the display name, and
// then proceeds exactly like Login. A display-name failure is logged
// and does not abort registration.
func (m *Manager) Register(ctx context.Context, req types.RegisterRequest) (*types.Session, error) {
	if err := types.ValidateRegistration(req); err != nil {
		return nil, err
	}

	identity, err := m.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := m.provider.SetDisplayName(ctx, identity.Token, req.Username); err != nil {
		m.log.Warn().Err(err).Msg("display name not set, continuing registration")
	} else {
		identity.DisplayName = req.Username
	}
	return m.establish(ctx, identity)
}

// establish runs the exchange + persist + notify tail shared by Login,
// Register, and Restore-after-signin flows.
func (m *Manager) establish(ctx context.Context, identity *idp.Identity) (*types.Session, error) {
	gen := m.generation()
	resp, err := m.exchange(ctx, types.ExchangeRequest{
		IdentityToken:  identity.Token,
		ProviderUserID: identity.UserID,
		Email:          identity.Email,
		DisplayName:    identity.DisplayName,
	})
	if err != nil {
		return nil, mapExchangeError(err)
	}

	snapshot := types.UserSnapshot{
		IdentityID:  identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
	}
	return m.commit(ctx, gen, identity.Token, snapshot, resp.SessionToken)
}

// Logout tears the session down. It always succeeds from the caller's
// point of view: local state and the credential store are cleared
// unconditionally and subscribers are notified before return; the
// provider sign-out is best-effort in the background.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	identityToken := ""
	if set, err := m.store.Read(ctx); err == nil && set != nil {
		identityToken = set.IdentityToken
	}
	m.gen++
	m.mu.Unlock()

	m.clearStore(ctx)
	m.transition(Unauthenticated, types.Session{})
	m.log.Info().Msg("logged out")

	if identityToken != "" {
		go func() {
			signOutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := m.provider.SignOut(signOutCtx, identityToken); err != nil {
				m.log.Warn().Err(err).Msg("remote sign-out failed, session already cleared locally")
			}
		}()
	}
}

// Refresh re-exchanges the stored identity token for a fresh session
// token. Concurrent callers collapse into a single in-flight exchange
// and all receive the same result. The manager never self-retries:
// transient failures go back to the caller.
func (m *Manager) Refresh(ctx context.Context) (*types.Session, error) {
	m.mu.Lock()
	if m.state != Authenticated && m.state != Refreshing {
		m.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	m.mu.Unlock()

	v, err, _ := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		return m.refreshOnce(ctx)
	})
	if err != nil {
		return nil, err
	}
	sess := v.(types.Session)
	return &sess, nil
}

func (m *Manager) refreshOnce(ctx context.Context) (interface{}, error) {
	gen := m.generation()

	set, err := m.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: refresh: %w", err)
	}
	if !set.Complete() {
		m.clearStore(ctx)
		m.transition(Unauthenticated, types.Session{})
		return nil, ErrNotAuthenticated
	}

	m.transitionIfGen(gen, Refreshing, m.currentSession())

	resp, err := m.exchange(ctx, types.ExchangeRequest{
		IdentityToken:  set.IdentityToken,
		ProviderUserID: set.UserSnapshot.IdentityID,
		Email:          set.UserSnapshot.Email,
		DisplayName:    set.UserSnapshot.DisplayName,
	})
	if err != nil {
		if errs.IsAuthStatus(err) {
			// Rejected credential: no ambiguous "maybe still logged in".
			if m.generationIs(gen) {
				m.clearStore(ctx)
				m.transition(Unauthenticated, types.Session{})
			}
			return nil, mapExchangeError(err)
		}
		// Transient: still authenticated with the old token.
		m.transitionIfGen(gen, Authenticated, m.currentSession())
		return nil, err
	}

	sess, err := m.commit(ctx, gen, set.IdentityToken, set.UserSnapshot, resp.SessionToken)
	if err != nil {
		return nil, err
	}
	return *sess, nil
}

// commit persists the new credential set and flips to Authenticated,
// unless a logout fenced this flow off in the meantime.
func (m *Manager) commit(ctx context.Context, gen uint64, identityToken string, snapshot types.UserSnapshot, sessionToken string) (*types.Session, error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.log.Info().Msg("discarding credential commit after logout")
		return nil, ErrRefreshSuperseded
	}
	sess := types.Session{
		IdentityID:      snapshot.IdentityID,
		Email:           snapshot.Email,
		DisplayName:     snapshot.DisplayName,
		SessionToken:    sessionToken,
		IssuedAt:        m.now(),
		IsAuthenticated: true,
	}
	m.session = sess
	m.state = Authenticated
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err := m.store.Write(ctx, &types.StoredCredentialSet{
		SessionToken:  sessionToken,
		IdentityToken: identityToken,
		UserSnapshot:  snapshot,
	}); err != nil {
		// Session stays live in memory; persistence failure is surfaced
		// so the caller knows restoration will not survive a restart.
		m.log.Error().Err(err).Msg("credential persist failed")
		m.subs.notify(snap)
		return &sess, fmt.Errorf("session: persist credentials: %w", err)
	}
	m.subs.notify(snap)
	return &sess, nil
}

// SendPasswordReset proxies the provider's reset flow.
func (m *Manager) SendPasswordReset(ctx context.Context, email string) error {
	if err := types.ValidateIDPresent(email, "email"); err != nil {
		return err
	}
	return m.provider.SendPasswordReset(ctx, email)
}

// ------------------------------
// internals
// ------------------------------

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		State:           m.state,
		Session:         m.session,
		IsAuthenticated: m.session.IsAuthenticated,
	}
}

func (m *Manager) currentSession() types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager) generationIs(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// transition sets the state, stores the session value, and notifies
// subscribers synchronously (outside the lock, so a listener may call
// back into the manager).
func (m *Manager) transition(state State, sess types.Session) {
	m.mu.Lock()
	m.state = state
	m.session = sess
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.subs.notify(snap)
}

// transitionIfGen is transition fenced on the logout generation.
func (m *Manager) transitionIfGen(gen uint64, state State, sess types.Session) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.state = state
	m.session = sess
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.subs.notify(snap)
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error().Err(err).Msg("credential clear failed")
	}
}

// mapExchangeError folds backend exchange failures into the AuthError
// set so callers above this layer never branch on raw statuses.
func mapExchangeError(err error) error {
	switch {
	case errs.IsAuthStatus(err):
		return errs.NewAuthError(errs.AuthInvalidCredentials, err)
	case errs.IsIrrecoverable(err):
		return errs.NewAuthError(errs.AuthUnknown, err)
	default:
		return errs.NewAuthError(errs.AuthNetworkUnavailable, err)
	}
}
