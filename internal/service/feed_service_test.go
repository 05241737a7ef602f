package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"feedgate/internal/domain"
	"feedgate/internal/repository"
)

type memFeedRepository struct {
	mu    sync.Mutex
	feeds map[string]domain.Feed
}

func newMemFeedRepository() *memFeedRepository {
	return &memFeedRepository{feeds: make(map[string]domain.Feed)}
}

func (r *memFeedRepository) Create(_ context.Context, feed *domain.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	feed.CreatedAt = now
	feed.UpdatedAt = now
	r.feeds[feed.ID] = *feed
	return nil
}

func (r *memFeedRepository) FindByID(_ context.Context, id string) (*domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[id]
	if !ok {
		return nil, repository.ErrFeedNotFound
	}
	return &f, nil
}

func (r *memFeedRepository) ListByOwner(_ context.Context, owner string) ([]domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Feed
	for _, f := range r.feeds {
		if f.Owner == owner {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memFeedRepository) Update(_ context.Context, feed *domain.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.feeds[feed.ID]; !ok {
		return repository.ErrFeedNotFound
	}
	feed.UpdatedAt = time.Now().UTC()
	r.feeds[feed.ID] = *feed
	return nil
}

func (r *memFeedRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.feeds[id]; !ok {
		return repository.ErrFeedNotFound
	}
	delete(r.feeds, id)
	return nil
}

type recordedEvent struct {
	channel   string
	eventType string
}

type spyNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *spyNotifier) Publish(channel, eventType string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{channel: channel, eventType: eventType})
}

func (n *spyNotifier) recorded() []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedEvent(nil), n.events...)
}

func newFeedServiceForTest(t *testing.T) (*FeedService, *memFeedRepository, repository.EntryStore, *spyNotifier) {
	t.Helper()
	_, client := newRedisClientForTest(t)
	feeds := newMemFeedRepository()
	entries := repository.NewRedisEntryStore(client, "test")
	notifier := &spyNotifier{}
	svc := NewFeedService(feeds, entries, notifier, time.Second)
	return svc, feeds, entries, notifier
}

func TestFeedCreateListGet(t *testing.T) {
	svc, _, _, notifier := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}

	feed, err := svc.Create(ctx, alice, FeedInput{URL: "https://example.org/rss", Title: "Example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if feed.ID == "" || feed.Owner != "alice" {
		t.Fatalf("unexpected feed: %+v", feed)
	}

	got, err := svc.Get(ctx, alice, feed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.URL != "https://example.org/rss" || got.Title != "Example" {
		t.Fatalf("unexpected feed: %+v", got)
	}

	list, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != feed.ID {
		t.Fatalf("unexpected listing: %+v", list)
	}

	events := notifier.recorded()
	if len(events) != 1 || events[0].eventType != "feed.created" || events[0].channel != "feeds."+feed.ID {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestFeedCreateRejectsBadURL(t *testing.T) {
	svc, _, _, _ := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}

	for _, u := range []string{"", "not-a-url", "ftp://example.org/x", "https://"} {
		if _, err := svc.Create(ctx, alice, FeedInput{URL: u}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("url %q: expected ErrInvalidInput, got %v", u, err)
		}
	}
}

func TestFeedListIsScopedToOwner(t *testing.T) {
	svc, _, _, _ := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}
	bob := domain.RequestIdentity{Login: "bob"}

	if _, err := svc.Create(ctx, alice, FeedInput{URL: "https://a.example/rss"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, bob, FeedInput{URL: "https://b.example/rss"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Owner != "alice" {
		t.Fatalf("listing must only show the caller's feeds: %+v", list)
	}
}

func TestFeedUpdateByNonOwnerIsForbidden(t *testing.T) {
	svc, feeds, _, notifier := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}
	bob := domain.RequestIdentity{Login: "bob"}

	feed, err := svc.Create(ctx, alice, FeedInput{URL: "https://example.org/rss", Title: "Original"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(ctx, bob, feed.ID, FeedInput{URL: "https://evil.example/rss", Title: "Hijacked"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	stored, err := feeds.FindByID(ctx, feed.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Title != "Original" || stored.URL != "https://example.org/rss" {
		t.Fatalf("denied update must not change the feed: %+v", stored)
	}
	for _, e := range notifier.recorded() {
		if e.eventType == "feed.updated" {
			t.Fatal("denied update must not publish an event")
		}
	}
}

func TestFeedGetByNonOwnerIsForbidden(t *testing.T) {
	svc, _, _, _ := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}
	bob := domain.RequestIdentity{Login: "bob"}

	feed, err := svc.Create(ctx, alice, FeedInput{URL: "https://example.org/rss"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Get(ctx, bob, feed.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestFeedUpdateChangesURLAndTitle(t *testing.T) {
	svc, _, _, notifier := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}

	feed, err := svc.Create(ctx, alice, FeedInput{URL: "https://example.org/rss", Title: "Before"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.Update(ctx, alice, feed.ID, FeedInput{URL: "https://example.org/atom", Title: "After"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.URL != "https://example.org/atom" || updated.Title != "After" {
		t.Fatalf("unexpected feed after update: %+v", updated)
	}

	events := notifier.recorded()
	if events[len(events)-1].eventType != "feed.updated" {
		t.Fatalf("expected feed.updated last, got %+v", events)
	}
}

func TestFeedDeleteRemovesFeedAndEntries(t *testing.T) {
	svc, _, entries, notifier := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}

	feed, err := svc.Create(ctx, alice, FeedInput{URL: "https://example.org/rss"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = entries.Push(ctx, feed.ID, []domain.Entry{
		{ID: "e1", FeedID: feed.ID, Title: "one", Published: time.Now()},
	})
	if err != nil {
		t.Fatalf("push: %v", err)
	}

	if err := svc.Delete(ctx, alice, feed.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, alice, feed.ID); !errors.Is(err, repository.ErrFeedNotFound) {
		t.Fatalf("expected ErrFeedNotFound after delete, got %v", err)
	}
	left, err := entries.ListByFeed(ctx, feed.ID, 10)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("entries must be purged with the feed, got %d", len(left))
	}

	events := notifier.recorded()
	if events[len(events)-1].eventType != "feed.deleted" {
		t.Fatalf("expected feed.deleted last, got %+v", events)
	}
}

func TestFeedEntriesNewestFirst(t *testing.T) {
	svc, _, entries, _ := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}

	feed, err := svc.Create(ctx, alice, FeedInput{URL: "https://example.org/rss"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	err = entries.Push(ctx, feed.ID, []domain.Entry{
		{ID: "old", FeedID: feed.ID, Published: base},
		{ID: "mid", FeedID: feed.ID, Published: base.Add(time.Hour)},
		{ID: "new", FeedID: feed.ID, Published: base.Add(2 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("push: %v", err)
	}

	got, err := svc.Entries(ctx, alice, feed.ID, 2)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		t.Fatalf("expected newest two entries first, got %+v", got)
	}
}

func TestFeedEntriesUnknownFeed(t *testing.T) {
	svc, _, _, _ := newFeedServiceForTest(t)
	ctx := context.Background()
	alice := domain.RequestIdentity{Login: "alice"}

	if _, err := svc.Entries(ctx, alice, "no-such-feed", 10); !errors.Is(err, repository.ErrFeedNotFound) {
		t.Fatalf("expected ErrFeedNotFound, got %v", err)
	}
}
