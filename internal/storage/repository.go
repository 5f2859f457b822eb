package storage

import (
	"context"
	"errors"

	"jukebot/internal/models"
)

// Common datastore errors surfaced to API handlers.
var (
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrPasswordLoginUnsupported = errors.New("password login is not configured for this subject")
	ErrNotFound                 = errors.New("not found")
)

// Repository exposes the datastore operations required by the API handlers
// and the identity resolver. The subject lookup, property, and ban methods
// satisfy auth.Directory.
type Repository interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	CreateSubject(ctx context.Context, params CreateSubjectParams) (models.Subject, error)
	FindSubjectByID(ctx context.Context, id int64) (models.Subject, bool, error)
	FindSubjectByName(ctx context.Context, name string) (models.Subject, bool, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	UpdateSubjectName(ctx context.Context, id int64, name string) (models.Subject, error)
	DeleteSubject(ctx context.Context, id int64) error
	AuthenticateSubject(ctx context.Context, name, password string) (models.Subject, error)
	SetSubjectPassword(ctx context.Context, id int64, password string) error
	RotateAuthSecret(ctx context.Context, id int64) (models.Subject, error)

	SubjectProperty(ctx context.Context, id int64, name string) (string, bool, error)
	SetSubjectProperty(ctx context.Context, id int64, name, value string) error
	IsGloballyBanned(ctx context.Context, id int64) (bool, error)
	SetGlobalBan(ctx context.Context, id int64, banned bool) error

	CreateChannel(ctx context.Context, ownerID int64, title, commandPrefix string) (models.Channel, error)
	GetChannel(ctx context.Context, id int64) (models.Channel, bool, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)
	UpdateChannel(ctx context.Context, id int64, update ChannelUpdate) (models.Channel, error)
	DeleteChannel(ctx context.Context, id int64) error

	CreateTrack(ctx context.Context, params CreateTrackParams) (models.Track, error)
	GetTrack(ctx context.Context, id int64) (models.Track, bool, error)
	ListTracks(ctx context.Context, channelID int64) ([]models.Track, error)
	MarkTrackPlayed(ctx context.Context, id int64) (models.Track, error)
	DeleteTrack(ctx context.Context, id int64) error

	CreateSuggestion(ctx context.Context, authorID int64, text string) (models.Suggestion, error)
	GetSuggestion(ctx context.Context, id int64) (models.Suggestion, bool, error)
	ListSuggestions(ctx context.Context, status string) ([]models.Suggestion, error)
	ResolveSuggestion(ctx context.Context, id, resolverID int64, status string) (models.Suggestion, error)
	DeleteSuggestion(ctx context.Context, id int64) error
}

// CreateSubjectParams collects the fields accepted when registering a subject.
type CreateSubjectParams struct {
	Name     string
	Password string
	// Level seeds the user_level property; empty leaves the property unset
	// so the resolver applies its login default.
	Level string
	// WithSecret controls whether an auth secret is generated at creation.
	WithSecret bool
}

// ChannelUpdate applies partial changes to a channel. Nil fields are left
// untouched.
type ChannelUpdate struct {
	Title         *string
	CommandPrefix *string
	BotEnabled    *bool
}

// CreateTrackParams collects the fields accepted when cataloguing a track.
type CreateTrackParams struct {
	ChannelID       int64
	Title           string
	Artist          string
	DurationSeconds int
	RequestedBy     int64
}
