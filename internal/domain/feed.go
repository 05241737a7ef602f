package domain

import "time"

// Feed is a subscription owned by a single login. Ownership is by value
// (the login string), never by foreign object reference.
type Feed struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Owner     string    `gorm:"size:64;index;not null" json:"owner"`
	URL       string    `gorm:"size:2048;not null" json:"url"`
	Title     string    `gorm:"size:256" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is a fetched feed item. Entries live in the cache store, keyed by
// feed id and ordered by publish time; the fetcher that produces them is
// an external collaborator.
type Entry struct {
	ID        string    `json:"id"`
	FeedID    string    `json:"feed_id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
}
