package cache

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/pitchside-go/internal/types"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func post(id string, likes int, liked bool, updated time.Time) types.Post {
	return types.Post{
		ID:         id,
		AuthorID:   "u-1",
		AuthorName: "Asha",
		Body:       "body of " + id,
		LikeCount:  likes,
		IsLiked:    liked,
		CreatedAt:  base.Add(-time.Hour),
		UpdatedAt:  updated,
	}
}

func newPosts(t *testing.T) *Collection[types.Post] {
	t.Helper()
	return NewCollection[types.Post](types.ResourcePosts, zerolog.Nop())
}

func fullPage(n int, updated time.Time) types.Page[types.Post] {
	items := make([]types.Post, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, post(fmt.Sprintf("p-%02d", i), i, false, updated.Add(time.Duration(i)*time.Second)))
	}
	return types.Page[types.Post]{Items: items, Page: 1}
}

func TestApplyPageHasMoreHeuristic(t *testing.T) {
	t.Parallel()
	c := newPosts(t)

	c.ApplyPage(fullPage(20, base), 20)
	if !c.HasMore() {
		t.Fatal("full page must imply more pages")
	}

	short := fullPage(7, base.Add(time.Hour))
	short.Page = 2
	c.ApplyPage(short, 20)
	if c.HasMore() {
		t.Fatal("short page must imply the end")
	}
	if c.Page() != 2 {
		t.Fatalf("page = %d, want 2", c.Page())
	}
}

func TestApplyPageExplicitHasMoreWins(t *testing.T) {
	t.Parallel()
	c := newPosts(t)

	// Server says no more even though the page is full.
	no := false
	p := fullPage(20, base)
	p.HasMore = &no
	c.ApplyPage(p, 20)
	if c.HasMore() {
		t.Fatal("explicit hasMore=false overridden by heuristic")
	}

	// Server says more even though the page is short.
	yes := true
	p2 := fullPage(3, base.Add(time.Hour))
	p2.HasMore = &yes
	c.ApplyPage(p2, 20)
	if !c.HasMore() {
		t.Fatal("explicit hasMore=true overridden by heuristic")
	}
}

func TestCacheSurvivesFailedFetch(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	c.ApplyPage(fullPage(20, base), 20)

	// A failed fetch never reaches ApplyPage; the mirror is untouched.
	if got := c.Len(); got != 20 {
		t.Fatalf("len = %d, want 20", got)
	}
	if _, ok := c.Get("p-05"); !ok {
		t.Fatal("item lost without any merge")
	}
}

func TestApplyRemoteLastWriteWins(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	c.ApplyRemote(post("p-1", 5, false, base.Add(time.Minute)))

	// Stale push loses.
	if c.ApplyRemote(post("p-1", 1, false, base)) {
		t.Fatal("stale push applied")
	}
	got, _ := c.Get("p-1")
	if got.LikeCount != 5 {
		t.Fatalf("like count = %d, stale push clobbered cache", got.LikeCount)
	}

	// Fresher push wins.
	if !c.ApplyRemote(post("p-1", 9, true, base.Add(2*time.Minute))) {
		t.Fatal("fresh push discarded")
	}
	got, _ = c.Get("p-1")
	if got.LikeCount != 9 || !got.IsLiked {
		t.Fatalf("fresh push not applied: %+v", got)
	}
}

func TestMutateRollbackRestoresExactState(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	original := post("p-1", 5, false, base)
	c.ApplyRemote(original)

	m, cached, err := c.Mutate("p-1", func(p types.Post) types.Post {
		p.IsLiked = true
		p.LikeCount++
		return p
	})
	if err != nil || !cached {
		t.Fatalf("mutate: cached=%v err=%v", cached, err)
	}

	optimistic, _ := c.Get("p-1")
	if !optimistic.IsLiked || optimistic.LikeCount != 6 {
		t.Fatalf("optimistic value not visible: %+v", optimistic)
	}

	m.Rollback()
	restored, _ := c.Get("p-1")
	if !reflect.DeepEqual(restored, original) {
		t.Fatalf("rollback drifted:\n got  %+v\n want %+v", restored, original)
	}

	// Resolved handles are inert.
	m.Rollback()
	m.Commit(nil)
	restored, _ = c.Get("p-1")
	if !reflect.DeepEqual(restored, original) {
		t.Fatal("resolved handle mutated the cache")
	}
}

func TestMutateRejectsSecondPendingMutation(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	c.ApplyRemote(post("p-1", 5, false, base))

	m, _, err := c.Mutate("p-1", func(p types.Post) types.Post { p.LikeCount++; return p })
	if err != nil {
		t.Fatalf("first mutate: %v", err)
	}
	if _, _, err := c.Mutate("p-1", func(p types.Post) types.Post { return p }); !errors.Is(err, ErrMutationPending) {
		t.Fatalf("second mutate err = %v, want ErrMutationPending", err)
	}

	m.Commit(nil)
	if _, _, err := c.Mutate("p-1", func(p types.Post) types.Post { return p }); err != nil {
		t.Fatalf("mutate after resolve: %v", err)
	}
}

func TestMutateUncachedItem(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	m, cached, err := c.Mutate("ghost", func(p types.Post) types.Post { return p })
	if err != nil || cached || m != nil {
		t.Fatalf("got m=%v cached=%v err=%v, want absent item reported", m, cached, err)
	}
}

func TestCommitAppliesServerTruth(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	c.ApplyRemote(post("p-1", 5, false, base))

	m, _, _ := c.Mutate("p-1", func(p types.Post) types.Post {
		p.IsLiked = true
		p.LikeCount++
		return p
	})

	server := post("p-1", 7, true, base.Add(time.Minute))
	m.Commit(&server)

	got, _ := c.Get("p-1")
	if got.LikeCount != 7 {
		t.Fatalf("like count = %d, server truth not applied", got.LikeCount)
	}
}

func TestInsertRollbackRemovesItem(t *testing.T) {
	t.Parallel()
	c := NewCollection[types.Message](types.ResourceMessages("conv-1"), zerolog.Nop())

	local := types.Message{
		ID:             "local-1",
		ConversationID: "conv-1",
		Body:           "howzat",
		SentAt:         base,
		UpdatedAt:      base,
	}
	m, err := c.Insert(local)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, ok := c.Get("local-1"); !ok {
		t.Fatal("optimistic insert not visible")
	}

	m.Rollback()
	if _, ok := c.Get("local-1"); ok {
		t.Fatal("rolled-back insert still cached")
	}
}

func TestRemotePushDuringPendingMutation(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	c.ApplyRemote(post("p-1", 5, false, base))

	m, _, _ := c.Mutate("p-1", func(p types.Post) types.Post {
		p.IsLiked = true
		p.LikeCount++
		return p
	})

	// Push arrives while the mutation is in flight. The optimistic value
	// stays on screen, but a later rollback lands on the push, not on
	// the pre-mutation copy.
	pushed := post("p-1", 8, false, base.Add(time.Minute))
	if c.ApplyRemote(pushed) {
		t.Fatal("push must not clobber the optimistic overlay")
	}
	got, _ := c.Get("p-1")
	if !got.IsLiked {
		t.Fatal("optimistic overlay lost")
	}

	m.Rollback()
	got, _ = c.Get("p-1")
	if !reflect.DeepEqual(got, pushed) {
		t.Fatalf("rollback restored stale state:\n got  %+v\n want %+v", got, pushed)
	}
}

func TestStalePushDuringPendingMutationIgnored(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	cached := post("p-1", 5, false, base.Add(time.Minute))
	c.ApplyRemote(cached)

	m, _, _ := c.Mutate("p-1", func(p types.Post) types.Post {
		p.IsLiked = true
		return p
	})

	// A push older than the rollback snapshot must not replace it.
	c.ApplyRemote(post("p-1", 2, false, base))

	m.Rollback()
	got, _ := c.Get("p-1")
	if !reflect.DeepEqual(got, cached) {
		t.Fatalf("stale push replaced rollback snapshot:\n got  %+v\n want %+v", got, cached)
	}
}

func TestItemsOrderedNewestFirst(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	c.ApplyRemote(post("p-a", 0, false, base.Add(time.Minute)))
	c.ApplyRemote(post("p-b", 0, false, base.Add(3*time.Minute)))
	c.ApplyRemote(post("p-c", 0, false, base.Add(2*time.Minute)))

	items := c.Items()
	want := []string{"p-b", "p-c", "p-a"}
	for i, item := range items {
		if item.ID != want[i] {
			t.Fatalf("items[%d] = %s, want %s", i, item.ID, want[i])
		}
	}
}

func TestLastSyncedAtTracksFetches(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	if !c.LastSyncedAt().IsZero() {
		t.Fatal("fresh collection reports a sync time")
	}

	c.now = func() time.Time { return base }
	c.ApplyPage(fullPage(3, base), 20)
	if !c.LastSyncedAt().Equal(base) {
		t.Fatalf("last synced = %v, want %v", c.LastSyncedAt(), base)
	}

	// Pushes are not fetches.
	c.ApplyRemote(post("p-x", 0, false, base.Add(time.Hour)))
	if !c.LastSyncedAt().Equal(base) {
		t.Fatal("push moved the sync time")
	}

	c.Clear()
	if !c.LastSyncedAt().IsZero() {
		t.Fatal("clear kept the sync time")
	}
}

func TestClearDropsEverything(t *testing.T) {
	t.Parallel()
	c := newPosts(t)
	c.ApplyPage(fullPage(20, base), 20)
	_, _, _ = c.Mutate("p-00", func(p types.Post) types.Post { return p })

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("len = %d after clear", c.Len())
	}
	if !c.HasMore() {
		t.Fatal("cleared collection must assume more pages exist")
	}
	if _, _, err := c.Mutate("p-00", func(p types.Post) types.Post { return p }); errors.Is(err, ErrMutationPending) {
		t.Fatal("pending mutation survived clear")
	}
}
