package repository

import (
	"context"
	"errors"

	"feedgate/internal/domain"
	"feedgate/internal/observability"

	"gorm.io/gorm"
)

var ErrFeedNotFound = errors.New("feed not found")

type FeedRepository interface {
	Create(ctx context.Context, feed *domain.Feed) error
	FindByID(ctx context.Context, id string) (*domain.Feed, error)
	ListByOwner(ctx context.Context, login string) ([]domain.Feed, error)
	Update(ctx context.Context, feed *domain.Feed) error
	Delete(ctx context.Context, id string) error
}

type GormFeedRepository struct{ db *gorm.DB }

func NewFeedRepository(db *gorm.DB) FeedRepository { return &GormFeedRepository{db: db} }

func (r *GormFeedRepository) Create(ctx context.Context, feed *domain.Feed) error {
	err := r.db.WithContext(ctx).Create(feed).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "feed", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "feed", "create", "success")
	return nil
}

func (r *GormFeedRepository) FindByID(ctx context.Context, id string) (*domain.Feed, error) {
	var f domain.Feed
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "feed", "find_by_id", "not_found")
			return nil, ErrFeedNotFound
		}
		observability.RecordRepositoryOperation(ctx, "feed", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "feed", "find_by_id", "success")
	return &f, nil
}

func (r *GormFeedRepository) ListByOwner(ctx context.Context, login string) ([]domain.Feed, error) {
	var feeds []domain.Feed
	err := r.db.WithContext(ctx).Where("owner = ?", login).Order("created_at DESC").Find(&feeds).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "feed", "list_by_owner", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "feed", "list_by_owner", "success")
	return feeds, nil
}

func (r *GormFeedRepository) Update(ctx context.Context, feed *domain.Feed) error {
	res := r.db.WithContext(ctx).Model(&domain.Feed{}).
		Where("id = ?", feed.ID).
		Updates(map[string]any{"url": feed.URL, "title": feed.Title})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "feed", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "feed", "update", "not_found")
		return ErrFeedNotFound
	}
	observability.RecordRepositoryOperation(ctx, "feed", "update", "success")
	return nil
}

func (r *GormFeedRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Feed{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "feed", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "feed", "delete", "not_found")
		return ErrFeedNotFound
	}
	observability.RecordRepositoryOperation(ctx, "feed", "delete", "success")
	return nil
}
