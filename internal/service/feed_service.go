package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"feedgate/internal/domain"
	"feedgate/internal/repository"

	"github.com/google/uuid"
)

// Notifier publishes resource events to the real-time channel layer.
type Notifier interface {
	Publish(channel, eventType string, data any)
}

type FeedInput struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// FeedService performs feed CRUD on behalf of an already-resolved
// identity. Who the caller is was settled by the mediator; whether they
// may touch this feed is settled here, per operation.
type FeedService struct {
	feeds        repository.FeedRepository
	entries      repository.EntryStore
	notifier     Notifier
	storeTimeout time.Duration
}

func NewFeedService(feeds repository.FeedRepository, entries repository.EntryStore, notifier Notifier, storeTimeout time.Duration) *FeedService {
	return &FeedService{feeds: feeds, entries: entries, notifier: notifier, storeTimeout: storeTimeout}
}

func (s *FeedService) Create(ctx context.Context, identity domain.RequestIdentity, in FeedInput) (*domain.Feed, error) {
	if err := validateFeedInput(in); err != nil {
		return nil, err
	}
	feed := &domain.Feed{
		ID:    uuid.NewString(),
		Owner: identity.Login,
		URL:   in.URL,
		Title: in.Title,
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.feeds.Create(ctx, feed); err != nil {
		return nil, storeErr(err)
	}
	s.notify(feed, "feed.created")
	return feed, nil
}

func (s *FeedService) List(ctx context.Context, identity domain.RequestIdentity) ([]domain.Feed, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	feeds, err := s.feeds.ListByOwner(ctx, identity.Login)
	if err != nil {
		return nil, storeErr(err)
	}
	return feeds, nil
}

func (s *FeedService) Get(ctx context.Context, identity domain.RequestIdentity, feedID string) (*domain.Feed, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.ownedFeed(ctx, identity, feedID)
}

func (s *FeedService) Update(ctx context.Context, identity domain.RequestIdentity, feedID string, in FeedInput) (*domain.Feed, error) {
	if err := validateFeedInput(in); err != nil {
		return nil, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	feed, err := s.ownedFeed(ctx, identity, feedID)
	if err != nil {
		return nil, err
	}
	feed.URL = in.URL
	feed.Title = in.Title
	if err := s.feeds.Update(ctx, feed); err != nil {
		if errors.Is(err, repository.ErrFeedNotFound) {
			return nil, err
		}
		return nil, storeErr(err)
	}
	s.notify(feed, "feed.updated")
	return feed, nil
}

func (s *FeedService) Delete(ctx context.Context, identity domain.RequestIdentity, feedID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	feed, err := s.ownedFeed(ctx, identity, feedID)
	if err != nil {
		return err
	}
	if err := s.feeds.Delete(ctx, feedID); err != nil {
		if errors.Is(err, repository.ErrFeedNotFound) {
			return err
		}
		return storeErr(err)
	}
	if err := s.entries.DeleteFeed(ctx, feedID); err != nil {
		return storeErr(err)
	}
	s.notify(feed, "feed.deleted")
	return nil
}

func (s *FeedService) Entries(ctx context.Context, identity domain.RequestIdentity, feedID string, limit int64) ([]domain.Entry, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if _, err := s.ownedFeed(ctx, identity, feedID); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListByFeed(ctx, feedID, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// ownedFeed loads the feed and enforces the per-operation ownership
// invariant: feed.Owner must equal identity.Login.
func (s *FeedService) ownedFeed(ctx context.Context, identity domain.RequestIdentity, feedID string) (*domain.Feed, error) {
	feed, err := s.feeds.FindByID(ctx, feedID)
	if err != nil {
		if errors.Is(err, repository.ErrFeedNotFound) {
			return nil, err
		}
		return nil, storeErr(err)
	}
	if feed.Owner != identity.Login {
		return nil, ErrForbidden
	}
	return feed, nil
}

func (s *FeedService) notify(feed *domain.Feed, eventType string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish("feeds."+feed.ID, eventType, feed)
}

func validateFeedInput(in FeedInput) error {
	u, err := url.ParseRequestURI(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidInput
	}
	return nil
}

func (s *FeedService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
