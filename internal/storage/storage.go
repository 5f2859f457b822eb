package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"jukebot/internal/auth"
	"jukebot/internal/models"
)

type dataset struct {
	Subjects    map[int64]models.Subject    `json:"subjects"`
	Properties  map[int64]map[string]string `json:"properties"`
	Bans        map[int64]bool              `json:"bans"`
	Channels    map[int64]models.Channel    `json:"channels"`
	Tracks      map[int64]models.Track      `json:"tracks"`
	Suggestions map[int64]models.Suggestion `json:"suggestions"`
	NextID      int64                       `json:"nextId"`
}

func newDataset() dataset {
	return dataset{
		Subjects:    make(map[int64]models.Subject),
		Properties:  make(map[int64]map[string]string),
		Bans:        make(map[int64]bool),
		Channels:    make(map[int64]models.Channel),
		Tracks:      make(map[int64]models.Track),
		Suggestions: make(map[int64]models.Suggestion),
		NextID:      1,
	}
}

// Storage is the JSON-file datastore. All reads and writes go through the
// mutex; mutations clone the dataset, persist the clone, and only then swap
// it in so a failed write never leaves partial state behind.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

// Option mutates storage configuration.
type Option func(*Storage)

// NewStorage opens (or initialises) the JSON datastore at path. An empty
// path keeps the dataset purely in memory.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	s := &Storage{filePath: path, data: newDataset()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewJSONRepository opens the JSON-backed datastore and returns it as a
// Repository.
func NewJSONRepository(path string, opts ...Option) (Repository, error) {
	return NewStorage(path, opts...)
}

func (s *Storage) load() error {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read datastore: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode datastore: %w", err)
	}
	if data.Subjects == nil {
		data.Subjects = make(map[int64]models.Subject)
	}
	if data.Properties == nil {
		data.Properties = make(map[int64]map[string]string)
	}
	if data.Bans == nil {
		data.Bans = make(map[int64]bool)
	}
	if data.Channels == nil {
		data.Channels = make(map[int64]models.Channel)
	}
	if data.Tracks == nil {
		data.Tracks = make(map[int64]models.Track)
	}
	if data.Suggestions == nil {
		data.Suggestions = make(map[int64]models.Suggestion)
	}
	if data.NextID < 1 {
		data.NextID = 1
	}
	s.data = data
	return nil
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		return s.persistOverride(data)
	}
	if s.filePath == "" {
		return nil
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create datastore dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write datastore: %w", err)
	}
	return os.Rename(tmp, s.filePath)
}

func cloneDataset(data dataset) dataset {
	clone := newDataset()
	clone.NextID = data.NextID
	for id, subject := range data.Subjects {
		clone.Subjects[id] = subject
	}
	for id, props := range data.Properties {
		copied := make(map[string]string, len(props))
		for name, value := range props {
			copied[name] = value
		}
		clone.Properties[id] = copied
	}
	for id, banned := range data.Bans {
		clone.Bans[id] = banned
	}
	for id, channel := range data.Channels {
		clone.Channels[id] = channel
	}
	for id, track := range data.Tracks {
		clone.Tracks[id] = track
	}
	for id, suggestion := range data.Suggestions {
		clone.Suggestions[id] = suggestion
	}
	return clone
}

// mutate runs fn against a clone of the dataset, persists the clone, and
// commits it on success.
func (s *Storage) mutate(fn func(*dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := cloneDataset(s.data)
	if err := fn(&updated); err != nil {
		return err
	}
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

func nextID(data *dataset) int64 {
	id := data.NextID
	data.NextID++
	return id
}

// Ping reports datastore availability; the JSON store is always reachable.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// Close flushes nothing for the JSON store; state is persisted per mutation.
func (s *Storage) Close(context.Context) error {
	return nil
}

// CreateSubject registers a new subject. Names must be unique under folding.
func (s *Storage) CreateSubject(ctx context.Context, params CreateSubjectParams) (models.Subject, error) {
	name := params.Name
	if FoldName(name) == "" {
		return models.Subject{}, errors.New("subject name is required")
	}
	if params.Level != "" {
		if _, err := auth.ParseLevel(params.Level); err != nil {
			return models.Subject{}, err
		}
	}
	var created models.Subject
	err := s.mutate(func(data *dataset) error {
		folded := FoldName(name)
		for _, existing := range data.Subjects {
			if FoldName(existing.Name) == folded {
				return fmt.Errorf("subject name %q already in use", name)
			}
		}
		subject := models.Subject{
			ID:        nextID(data),
			Name:      name,
			CreatedAt: time.Now().UTC(),
		}
		if params.Password != "" {
			hashed, err := hashPassword(params.Password)
			if err != nil {
				return err
			}
			subject.PasswordHash = hashed
		}
		if params.WithSecret {
			secret, err := generateAuthSecret()
			if err != nil {
				return err
			}
			subject.AuthSecret = secret
		}
		data.Subjects[subject.ID] = subject
		if params.Level != "" {
			data.Properties[subject.ID] = map[string]string{auth.LevelProperty: params.Level}
		}
		created = subject
		return nil
	})
	if err != nil {
		return models.Subject{}, err
	}
	return created, nil
}

// FindSubjectByID retrieves a subject by its stable identifier.
func (s *Storage) FindSubjectByID(ctx context.Context, id int64) (models.Subject, bool, error) {
	s.mu.RLock()
	subject, ok := s.data.Subjects[id]
	s.mu.RUnlock()
	return subject, ok, nil
}

// FindSubjectByName retrieves a subject by folded name.
func (s *Storage) FindSubjectByName(ctx context.Context, name string) (models.Subject, bool, error) {
	folded := FoldName(name)
	if folded == "" {
		return models.Subject{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, subject := range s.data.Subjects {
		if FoldName(subject.Name) == folded {
			return subject, true, nil
		}
	}
	return models.Subject{}, false, nil
}

// ListSubjects returns all subjects ordered by ID.
func (s *Storage) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	s.mu.RLock()
	subjects := make([]models.Subject, 0, len(s.data.Subjects))
	for _, subject := range s.data.Subjects {
		subjects = append(subjects, subject)
	}
	s.mu.RUnlock()
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

// UpdateSubjectName renames a subject, preserving folded-name uniqueness.
func (s *Storage) UpdateSubjectName(ctx context.Context, id int64, name string) (models.Subject, error) {
	if FoldName(name) == "" {
		return models.Subject{}, errors.New("subject name is required")
	}
	var updated models.Subject
	err := s.mutate(func(data *dataset) error {
		subject, ok := data.Subjects[id]
		if !ok {
			return ErrNotFound
		}
		folded := FoldName(name)
		for otherID, existing := range data.Subjects {
			if otherID != id && FoldName(existing.Name) == folded {
				return fmt.Errorf("subject name %q already in use", name)
			}
		}
		subject.Name = name
		data.Subjects[id] = subject
		updated = subject
		return nil
	})
	if err != nil {
		return models.Subject{}, err
	}
	return updated, nil
}

// DeleteSubject removes a subject along with its properties and ban flag.
func (s *Storage) DeleteSubject(ctx context.Context, id int64) error {
	return s.mutate(func(data *dataset) error {
		if _, ok := data.Subjects[id]; !ok {
			return ErrNotFound
		}
		delete(data.Subjects, id)
		delete(data.Properties, id)
		delete(data.Bans, id)
		return nil
	})
}

// RotateAuthSecret replaces the subject's API secret with a fresh one.
func (s *Storage) RotateAuthSecret(ctx context.Context, id int64) (models.Subject, error) {
	var updated models.Subject
	err := s.mutate(func(data *dataset) error {
		subject, ok := data.Subjects[id]
		if !ok {
			return ErrNotFound
		}
		secret, err := generateAuthSecret()
		if err != nil {
			return err
		}
		subject.AuthSecret = secret
		data.Subjects[id] = subject
		updated = subject
		return nil
	})
	if err != nil {
		return models.Subject{}, err
	}
	return updated, nil
}

// SubjectProperty fetches a property value for the subject.
func (s *Storage) SubjectProperty(ctx context.Context, id int64, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	props, ok := s.data.Properties[id]
	if !ok {
		return "", false, nil
	}
	value, ok := props[name]
	return value, ok, nil
}

// SetSubjectProperty stores a property value; an empty value clears it.
func (s *Storage) SetSubjectProperty(ctx context.Context, id int64, name, value string) error {
	if name == "" {
		return errors.New("property name is required")
	}
	return s.mutate(func(data *dataset) error {
		if _, ok := data.Subjects[id]; !ok {
			return ErrNotFound
		}
		props := data.Properties[id]
		if value == "" {
			delete(props, name)
			if len(props) == 0 {
				delete(data.Properties, id)
			}
			return nil
		}
		if props == nil {
			props = make(map[string]string)
			data.Properties[id] = props
		}
		props[name] = value
		return nil
	})
}

// IsGloballyBanned reports whether the subject is banned site-wide.
func (s *Storage) IsGloballyBanned(ctx context.Context, id int64) (bool, error) {
	s.mu.RLock()
	banned := s.data.Bans[id]
	s.mu.RUnlock()
	return banned, nil
}

// SetGlobalBan flips the site-wide ban flag for the subject.
func (s *Storage) SetGlobalBan(ctx context.Context, id int64, banned bool) error {
	return s.mutate(func(data *dataset) error {
		if _, ok := data.Subjects[id]; !ok {
			return ErrNotFound
		}
		if banned {
			data.Bans[id] = true
		} else {
			delete(data.Bans, id)
		}
		return nil
	})
}

// CreateChannel registers a bot deployment owned by a subject.
func (s *Storage) CreateChannel(ctx context.Context, ownerID int64, title, commandPrefix string) (models.Channel, error) {
	if title == "" {
		return models.Channel{}, errors.New("channel title is required")
	}
	if commandPrefix == "" {
		commandPrefix = "!"
	}
	var created models.Channel
	err := s.mutate(func(data *dataset) error {
		if _, ok := data.Subjects[ownerID]; !ok {
			return fmt.Errorf("owner %d: %w", ownerID, ErrNotFound)
		}
		now := time.Now().UTC()
		channel := models.Channel{
			ID:            nextID(data),
			OwnerID:       ownerID,
			Title:         title,
			CommandPrefix: commandPrefix,
			BotEnabled:    true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		data.Channels[channel.ID] = channel
		created = channel
		return nil
	})
	if err != nil {
		return models.Channel{}, err
	}
	return created, nil
}

// GetChannel retrieves a channel by ID.
func (s *Storage) GetChannel(ctx context.Context, id int64) (models.Channel, bool, error) {
	s.mu.RLock()
	channel, ok := s.data.Channels[id]
	s.mu.RUnlock()
	return channel, ok, nil
}

// ListChannels returns all channels ordered by ID.
func (s *Storage) ListChannels(ctx context.Context) ([]models.Channel, error) {
	s.mu.RLock()
	channels := make([]models.Channel, 0, len(s.data.Channels))
	for _, channel := range s.data.Channels {
		channels = append(channels, channel)
	}
	s.mu.RUnlock()
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, nil
}

// UpdateChannel applies a partial update to a channel.
func (s *Storage) UpdateChannel(ctx context.Context, id int64, update ChannelUpdate) (models.Channel, error) {
	var updated models.Channel
	err := s.mutate(func(data *dataset) error {
		channel, ok := data.Channels[id]
		if !ok {
			return ErrNotFound
		}
		if update.Title != nil {
			if *update.Title == "" {
				return errors.New("channel title is required")
			}
			channel.Title = *update.Title
		}
		if update.CommandPrefix != nil && *update.CommandPrefix != "" {
			channel.CommandPrefix = *update.CommandPrefix
		}
		if update.BotEnabled != nil {
			channel.BotEnabled = *update.BotEnabled
		}
		channel.UpdatedAt = time.Now().UTC()
		data.Channels[id] = channel
		updated = channel
		return nil
	})
	if err != nil {
		return models.Channel{}, err
	}
	return updated, nil
}

// DeleteChannel removes a channel and its track catalog.
func (s *Storage) DeleteChannel(ctx context.Context, id int64) error {
	return s.mutate(func(data *dataset) error {
		if _, ok := data.Channels[id]; !ok {
			return ErrNotFound
		}
		delete(data.Channels, id)
		for trackID, track := range data.Tracks {
			if track.ChannelID == id {
				delete(data.Tracks, trackID)
			}
		}
		return nil
	})
}

// CreateTrack catalogs a track on a channel.
func (s *Storage) CreateTrack(ctx context.Context, params CreateTrackParams) (models.Track, error) {
	if params.Title == "" {
		return models.Track{}, errors.New("track title is required")
	}
	if params.DurationSeconds < 0 {
		return models.Track{}, errors.New("track duration cannot be negative")
	}
	var created models.Track
	err := s.mutate(func(data *dataset) error {
		if _, ok := data.Channels[params.ChannelID]; !ok {
			return fmt.Errorf("channel %d: %w", params.ChannelID, ErrNotFound)
		}
		track := models.Track{
			ID:              nextID(data),
			ChannelID:       params.ChannelID,
			Title:           params.Title,
			Artist:          params.Artist,
			DurationSeconds: params.DurationSeconds,
			RequestedBy:     params.RequestedBy,
			CreatedAt:       time.Now().UTC(),
		}
		data.Tracks[track.ID] = track
		created = track
		return nil
	})
	if err != nil {
		return models.Track{}, err
	}
	return created, nil
}

// GetTrack retrieves a track by ID.
func (s *Storage) GetTrack(ctx context.Context, id int64) (models.Track, bool, error) {
	s.mu.RLock()
	track, ok := s.data.Tracks[id]
	s.mu.RUnlock()
	return track, ok, nil
}

// ListTracks returns a channel's catalog ordered by ID.
func (s *Storage) ListTracks(ctx context.Context, channelID int64) ([]models.Track, error) {
	s.mu.RLock()
	tracks := make([]models.Track, 0)
	for _, track := range s.data.Tracks {
		if track.ChannelID == channelID {
			tracks = append(tracks, track)
		}
	}
	s.mu.RUnlock()
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID < tracks[j].ID })
	return tracks, nil
}

// MarkTrackPlayed increments the play counter.
func (s *Storage) MarkTrackPlayed(ctx context.Context, id int64) (models.Track, error) {
	var updated models.Track
	err := s.mutate(func(data *dataset) error {
		track, ok := data.Tracks[id]
		if !ok {
			return ErrNotFound
		}
		track.PlayCount++
		data.Tracks[id] = track
		updated = track
		return nil
	})
	if err != nil {
		return models.Track{}, err
	}
	return updated, nil
}

// DeleteTrack removes a track from its channel's catalog.
func (s *Storage) DeleteTrack(ctx context.Context, id int64) error {
	return s.mutate(func(data *dataset) error {
		if _, ok := data.Tracks[id]; !ok {
			return ErrNotFound
		}
		delete(data.Tracks, id)
		return nil
	})
}

// CreateSuggestion records a viewer suggestion in the open state.
func (s *Storage) CreateSuggestion(ctx context.Context, authorID int64, text string) (models.Suggestion, error) {
	if text == "" {
		return models.Suggestion{}, errors.New("suggestion text is required")
	}
	var created models.Suggestion
	err := s.mutate(func(data *dataset) error {
		if _, ok := data.Subjects[authorID]; !ok {
			return fmt.Errorf("author %d: %w", authorID, ErrNotFound)
		}
		suggestion := models.Suggestion{
			ID:        nextID(data),
			AuthorID:  authorID,
			Text:      text,
			Status:    models.SuggestionOpen,
			CreatedAt: time.Now().UTC(),
		}
		data.Suggestions[suggestion.ID] = suggestion
		created = suggestion
		return nil
	})
	if err != nil {
		return models.Suggestion{}, err
	}
	return created, nil
}

// GetSuggestion retrieves a suggestion by ID.
func (s *Storage) GetSuggestion(ctx context.Context, id int64) (models.Suggestion, bool, error) {
	s.mu.RLock()
	suggestion, ok := s.data.Suggestions[id]
	s.mu.RUnlock()
	return suggestion, ok, nil
}

// ListSuggestions returns suggestions ordered by ID, optionally filtered by
// status.
func (s *Storage) ListSuggestions(ctx context.Context, status string) ([]models.Suggestion, error) {
	s.mu.RLock()
	suggestions := make([]models.Suggestion, 0)
	for _, suggestion := range s.data.Suggestions {
		if status == "" || suggestion.Status == status {
			suggestions = append(suggestions, suggestion)
		}
	}
	s.mu.RUnlock()
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].ID < suggestions[j].ID })
	return suggestions, nil
}

// ResolveSuggestion marks a suggestion accepted or rejected.
func (s *Storage) ResolveSuggestion(ctx context.Context, id, resolverID int64, status string) (models.Suggestion, error) {
	if status != models.SuggestionAccepted && status != models.SuggestionRejected {
		return models.Suggestion{}, fmt.Errorf("invalid resolution status %q", status)
	}
	var updated models.Suggestion
	err := s.mutate(func(data *dataset) error {
		suggestion, ok := data.Suggestions[id]
		if !ok {
			return ErrNotFound
		}
		if suggestion.Status != models.SuggestionOpen {
			return fmt.Errorf("suggestion %d already resolved", id)
		}
		now := time.Now().UTC()
		suggestion.Status = status
		suggestion.ResolverID = resolverID
		suggestion.ResolvedAt = &now
		data.Suggestions[id] = suggestion
		updated = suggestion
		return nil
	})
	if err != nil {
		return models.Suggestion{}, err
	}
	return updated, nil
}

// DeleteSuggestion removes a suggestion.
func (s *Storage) DeleteSuggestion(ctx context.Context, id int64) error {
	return s.mutate(func(data *dataset) error {
		if _, ok := data.Suggestions[id]; !ok {
			return ErrNotFound
		}
		delete(data.Suggestions, id)
		return nil
	})
}
