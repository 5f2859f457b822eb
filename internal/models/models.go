package models

import "time"

// Subject is a user or bot account. The numeric ID is the stable identity;
// Name is an alternate lookup key and may be reassigned over time. AuthSecret
// is the API key consumed by secret-based credential schemes; an empty value
// means the subject cannot authenticate that way. The authorization level is
// not stored on the record itself but in the subject property table.
type Subject struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	AuthSecret   string    `json:"authSecret,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Channel describes a bot deployment on a streaming channel.
type Channel struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"ownerId"`
	Title         string    `json:"title"`
	CommandPrefix string    `json:"commandPrefix"`
	BotEnabled    bool      `json:"botEnabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Track is a music catalog entry scoped to a channel.
type Track struct {
	ID              int64     `json:"id"`
	ChannelID       int64     `json:"channelId"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	RequestedBy     int64     `json:"requestedBy,omitempty"`
	PlayCount       int       `json:"playCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Suggestion states.
const (
	SuggestionOpen     = "open"
	SuggestionAccepted = "accepted"
	SuggestionRejected = "rejected"
)

// Suggestion is a viewer-submitted idea tracked until an editor resolves it.
type Suggestion struct {
	ID         int64      `json:"id"`
	AuthorID   int64      `json:"authorId"`
	Text       string     `json:"text"`
	Status     string     `json:"status"`
	ResolverID int64      `json:"resolverId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}
