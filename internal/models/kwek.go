package models

import "time"

// Kwek is a short text post tied to its author.
type Kwek struct {
	ID       int64       `json:"id"`
	Text     string      `json:"text"`
	PostedAt time.Time   `json:"postedAt"`
	UserID   int64       `json:"-"`
	User     UserProfile `json:"user"`
}

// KwekInput is the request payload for creating or updating a kwek.
type KwekInput struct {
	Text string `json:"text" validate:"required,min=1,max=256"`
}
