package models

import "time"

type AccessGrant struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Username  string     `json:"username" gorm:"uniqueIndex;not null;size:255"`
	Granted   bool       `json:"granted" gorm:"default:false"`
	GrantedAt *time.Time `json:"grantedAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (AccessGrant) TableName() string {
	return "access_grants"
}

// User is a login-capable student account. Rows only appear once a
// professor approved a request or created the account by hand.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null;size:255"`
	Password  string    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

type FeatureFlag struct {
	Key       string    `json:"key" gorm:"primaryKey;size:100"`
	Enabled   bool      `json:"enabled" gorm:"default:false"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (FeatureFlag) TableName() string {
	return "feature_flags"
}

const FlagGoogleProvider = "google_provider"
