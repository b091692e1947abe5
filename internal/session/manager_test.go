package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/pitchside-go/internal/credstore"
	"github.com/pitchside/pitchside-go/internal/errs"
	"github.com/pitchside/pitchside-go/internal/idp"
	"github.com/pitchside/pitchside-go/internal/types"
)

// fakeProvider answers identity calls without a network.
type fakeProvider struct {
	mu            sync.Mutex
	signInErr     error
	signUpErr     error
	displayErr    error
	signOutCalls  int
	displayCalls  int
	resetCalls    int
	lastDisplayed string
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*idp.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &idp.Identity{UserID: "user-1", Email: email, Token: "id-token"}, nil
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string) (*idp.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &idp.Identity{UserID: "user-2", Email: email, Token: "id-token-2"}, nil
}

func (f *fakeProvider) SignOut(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return errors.New("provider unreachable") // logout must not care
}

func (f *fakeProvider) SendPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	return nil
}

func (f *fakeProvider) SetDisplayName(ctx context.Context, token, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displayCalls++
	f.lastDisplayed = name
	if f.displayErr != nil {
		return f.displayErr
	}
	return nil
}

// fakeExchange counts calls and can be made to block or fail.
type fakeExchange struct {
	calls   int64
	block   chan struct{} // when non-nil, exchange waits for close
	failErr error
	token   string
}

func (f *fakeExchange) fn(ctx context.Context, req types.ExchangeRequest) (*types.ExchangeResponse, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.block != nil {
		<-f.block
	}
	if f.failErr != nil {
		return nil, f.failErr
	}
	tok := f.token
	if tok == "" {
		tok = "sess-token"
	}
	return &types.ExchangeResponse{SessionToken: tok}, nil
}

func newTestManager(t *testing.T, provider *fakeProvider, ex *fakeExchange) (*Manager, credstore.Store) {
	t.Helper()
	store, err := credstore.New(credstore.StoreTypeMemory)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return NewManager(store, provider, ex.fn, zerolog.Nop()), store
}

func TestLoginHappyPath(t *testing.T) {
	t.Parallel()
	ex := &fakeExchange{}
	m, store := newTestManager(t, &fakeProvider{}, ex)

	sess, err := m.Login(context.Background(), "a@b.com", "secret12")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.IsAuthenticated || sess.SessionToken != "sess-token" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	set, err := store.Read(context.Background())
	if err != nil || !set.Complete() {
		t.Fatalf("credentials not persisted: set=%+v err=%v", set, err)
	}
	if set.IdentityToken != "id-token" || set.SessionToken != "sess-token" {
		t.Fatalf("wrong credential set: %+v", set)
	}
}

func TestLoginValidationFailsFast(t *testing.T) {
	t.Parallel()
	ex := &fakeExchange{}
	m, _ := newTestManager(t, &fakeProvider{}, ex)

	if _, err := m.Login(context.Background(), "", "secret12"); !errs.IsValidation(err) {
		t.Fatalf("empty email: got %v", err)
	}
	if _, err := m.Login(context.Background(), "a@b.com", "short"); !errs.IsValidation(err) {
		t.Fatalf("short password: got %v", err)
	}
	if atomic.LoadInt64(&ex.calls) != 0 {
		t.Fatal("validation failure reached the network")
	}
}

func TestRegisterToleratesDisplayNameFailure(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{displayErr: errors.New("metadata service down")}
	ex := &fakeExchange{}
	m, _ := newTestManager(t, provider, ex)

	sess, err := m.Register(context.Background(), types.RegisterRequest{
		Email: "new@b.com", Password: "secret12", Username: "allrounder", Age: 19,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !sess.IsAuthenticated {
		t.Fatal("register did not authenticate")
	}
	if provider.displayCalls != 1 {
		t.Fatalf("display name attempts = %d", provider.displayCalls)
	}
}

func TestRefreshCollapsesConcurrentCallers(t *testing.T) {
	t.Parallel()
	ex := &fakeExchange{}
	m, _ := newTestManager(t, &fakeProvider{}, ex)
	if _, err := m.Login(context.Background(), "a@b.com", "secret12"); err != nil {
		t.Fatalf("login: %v", err)
	}
	loginCalls := atomic.LoadInt64(&ex.calls)

	block := make(chan struct{})
	ex.block = block
	ex.token = "fresh-token"

	const n = 8
	var wg sync.WaitGroup
	results := make([]*types.Session, n)
	errsOut := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errsOut[i] = m.Refresh(context.Background())
		}(i)
	}

	// Let every caller join the in-flight refresh before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	if got := atomic.LoadInt64(&ex.calls) - loginCalls; got != 1 {
		t.Fatalf("refresh issued %d exchanges, want exactly 1", got)
	}
	for i := 0; i < n; i++ {
		if errsOut[i] != nil {
			t.Fatalf("caller %d: %v", i, errsOut[i])
		}
		if results[i].SessionToken != "fresh-token" {
			t.Fatalf("caller %d got token %q", i, results[i].SessionToken)
		}
	}
}

func TestRefreshAuthRejectionForcesUnauthenticated(t *testing.T) {
	t.Parallel()
	ex := &fakeExchange{}
	m, store := newTestManager(t, &fakeProvider{}, ex)
	if _, err := m.Login(context.Background(), "a@b.com", "secret12"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ex.failErr = errs.NewHTTPError(401, "revoked", "exchange")
	_, err := m.Refresh(context.Background())
	if errs.AuthCodeOf(err) != errs.AuthInvalidCredentials {
		t.Fatalf("want mapped AuthInvalidCredentials, got %v", err)
	}

	snap := m.Current()
	if snap.State != Unauthenticated || snap.IsAuthenticated {
		t.Fatalf("state after rejection: %+v", snap)
	}
	if set, _ := store.Read(context.Background()); set != nil {
		t.Fatalf("credentials not cleared: %+v", set)
	}
}

func TestRefreshTransientErrorKeepsSession(t *testing.T) {
	t.Parallel()
	ex := &fakeExchange{}
	m, store := newTestManager(t, &fakeProvider{}, ex)
	if _, err := m.Login(context.Background(), "a@b.com", "secret12"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ex.failErr = errs.NewNetworkError("exchange", errors.New("dns fail"))
	if _, err := m.Refresh(context.Background()); err == nil {
		t.Fatal("expected transient error surfaced")
	}

	snap := m.Current()
	if snap.State != Authenticated || !snap.IsAuthenticated {
		t.Fatalf("transient failure must not log out: %+v", snap)
	}
	if set, _ := store.Read(context.Background()); !set.Complete() {
		t.Fatal("transient failure must not clear credentials")
	}
}

func TestLateSubscriberReceivesCurrentState(t *testing.T) {
	t.Parallel()
	ex := &fakeExchange{}
	m, _ := newTestManager(t, &fakeProvider{}, ex)
	if _, err := m.Login(context.Background(), "a@b.com", "secret12"); err != nil {
		t.Fatalf("login: %v", err)
	}

	var got []Snapshot
	sub := m.Subscribe(func(s Snapshot) { got = append(got, s) })
	defer sub.Cancel()

	if len(got) != 1 {
		t.Fatalf("late subscriber received %d snapshots, want immediate replay", len(got))
	}
	if !got[0].IsAuthenticated || got[0].Session.SessionToken == "" {
		t.Fatalf("replayed snapshot wrong: %+v", got[0])
	}
}

func TestSubscriptionCancelStopsDelivery(t *testing.T) {
	t.Parallel()
	ex := &fakeExchange{}
	m, _ := newTestManager(t, &fakeProvider{}, ex)

	var calls int
	sub := m.Subscribe(func(Snapshot) { calls++ })
	sub.Cancel()
	sub.Cancel() // idempotent

	if _, err := m.Login(context.Background(), "a@b.com", "secret12"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if calls != 1 { // only the replay at subscribe time
		t.Fatalf("cancelled subscriber still notified, calls=%d", calls)
	}
}

func TestLogoutDuringRefreshDiscardsStaleResult(t *testing.T) {
	t.Parallel()
	ex := &fakeExchange{}
	m, store := newTestManager(t, &fakeProvider{}, ex)

	sess, err := m.Login(context.Background(), "a@b.com", "secret12")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.SessionToken == "" {
		t.Fatal("login produced empty session token")
	}

	block := make(chan struct{})
	ex.block = block
	ex.token = "stale-token"

	refreshDone := make(chan error, 1)
	go func() {
		_, err := m.Refresh(context.Background())
		refreshDone <- err
	}()
	time.Sleep(30 * time.Millisecond) // let the refresh reach the exchange

	m.Logout(context.Background())

	snap := m.Current()
	if snap.State != Unauthenticated || snap.IsAuthenticated {
		t.Fatalf("logout not immediate: %+v", snap)
	}
	if set, _ := store.Read(context.Background()); set != nil {
		t.Fatalf("store not cleared by logout: %+v", set)
	}

	close(block)
	if err := <-refreshDone; !errors.Is(err, ErrRefreshSuperseded) {
		t.Fatalf("stale refresh outcome = %v, want ErrRefreshSuperseded", err)
	}

	snap = m.Current()
	if snap.State != Unauthenticated || snap.IsAuthenticated {
		t.Fatalf("stale refresh re-authenticated: %+v", snap)
	}
	if set, _ := store.Read(context.Background()); set != nil {
		t.Fatalf("stale refresh repopulated store: %+v", set)
	}
}

func TestRestoreHandlesEmptyAndPartialStores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Empty store: quiet landing in Unauthenticated.
	ex := &fakeExchange{}
	m, _ := newTestManager(t, &fakeProvider{}, ex)
	if sess, err := m.Restore(ctx); err != nil || sess != nil {
		t.Fatalf("empty restore = (%v, %v)", sess, err)
	}
	if m.Current().State != Unauthenticated {
		t.Fatalf("state = %v", m.Current().State)
	}
	if atomic.LoadInt64(&ex.calls) != 0 {
		t.Fatal("empty restore reached the network")
	}

	// Partial set: treated as corrupt, cleared, no verification call.
	ex2 := &fakeExchange{}
	m2, store2 := newTestManager(t, &fakeProvider{}, ex2)
	_ = store2.Write(ctx, &types.StoredCredentialSet{SessionToken: "only-half"})
	if sess, err := m2.Restore(ctx); err != nil || sess != nil {
		t.Fatalf("partial restore = (%v, %v)", sess, err)
	}
	if set, _ := store2.Read(ctx); set != nil {
		t.Fatalf("corrupt set not cleared: %+v", set)
	}
}

func TestRestoreVerifiesAgainstBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ex := &fakeExchange{token: "restored-token"}
	m, store := newTestManager(t, &fakeProvider{}, ex)
	_ = store.Write(ctx, &types.StoredCredentialSet{
		SessionToken:  "old-token",
		IdentityToken: "id-token",
		UserSnapshot:  types.UserSnapshot{IdentityID: "user-1", Email: "a@b.com"},
	})

	sess, err := m.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if sess.SessionToken != "restored-token" {
		t.Fatalf("token = %q", sess.SessionToken)
	}
	if m.Current().State != Authenticated {
		t.Fatalf("state = %v", m.Current().State)
	}

	// Rejected verification clears everything.
	ex2 := &fakeExchange{failErr: errs.NewHTTPError(401, "revoked", "exchange")}
	m2, store2 := newTestManager(t, &fakeProvider{}, ex2)
	_ = store2.Write(ctx, &types.StoredCredentialSet{
		SessionToken:  "old-token",
		IdentityToken: "id-token",
		UserSnapshot:  types.UserSnapshot{IdentityID: "user-1"},
	})
	if _, err := m2.Restore(ctx); errs.AuthCodeOf(err) != errs.AuthInvalidCredentials {
		t.Fatalf("want mapped auth error, got %v", err)
	}
	if set, _ := store2.Read(ctx); set != nil {
		t.Fatalf("rejected restore left credentials: %+v", set)
	}
}

func TestRefreshWhenUnauthenticated(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, &fakeProvider{}, &fakeExchange{})
	if _, err := m.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("got %v, want ErrNotAuthenticated", err)
	}
}
