package domain

import "time"

// User is the persistent identity record. The credential is stored as a
// bcrypt hash; the core only ever performs an opaque match against it.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Login          string    `gorm:"size:64;uniqueIndex;not null" json:"login"`
	CredentialHash string    `gorm:"size:128;not null" json:"-"`
	DisplayName    string    `gorm:"size:128" json:"display_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
