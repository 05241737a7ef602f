package realtime

import (
	"context"
	"errors"
	"strings"

	"feedgate/internal/domain"
	"feedgate/internal/repository"
)

// ChannelACL decides whether an identity may receive outbound traffic on
// a channel. The permissive allow-everything bridge of early demos is
// deliberately not an option here.
type ChannelACL interface {
	AllowOutbound(ctx context.Context, identity domain.RequestIdentity, channel string) (bool, error)
}

// FeedOwnerACL permits the channel "feeds.<feedID>" only to the owner of
// that feed. Unknown channel shapes and unknown feeds are denied.
type FeedOwnerACL struct {
	feeds repository.FeedRepository
}

func NewFeedOwnerACL(feeds repository.FeedRepository) *FeedOwnerACL {
	return &FeedOwnerACL{feeds: feeds}
}

func (a *FeedOwnerACL) AllowOutbound(ctx context.Context, identity domain.RequestIdentity, channel string) (bool, error) {
	feedID, ok := strings.CutPrefix(channel, "feeds.")
	if !ok || feedID == "" {
		return false, nil
	}
	feed, err := a.feeds.FindByID(ctx, feedID)
	if err != nil {
		if errors.Is(err, repository.ErrFeedNotFound) {
			return false, nil
		}
		return false, err
	}
	return feed.Owner == identity.Login, nil
}
