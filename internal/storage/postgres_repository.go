package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jukebot/internal/auth"
	"jukebot/internal/models"
)

// PostgresConfig describes how the repository initialises its Postgres
// connection pool.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	ApplicationName     string
}

// PostgresOption adjusts the Postgres pool configuration.
type PostgresOption func(*PostgresConfig)

// WithPoolLimits bounds the connection pool size.
func WithPoolLimits(max, min int32) PostgresOption {
	return func(cfg *PostgresConfig) {
		if max > 0 {
			cfg.MaxConnections = max
		}
		if min >= 0 {
			cfg.MinConnections = min
		}
	}
}

// WithConnLifetimes tunes pooled connection recycling.
func WithConnLifetimes(lifetime, idle time.Duration) PostgresOption {
	return func(cfg *PostgresConfig) {
		if lifetime > 0 {
			cfg.MaxConnLifetime = lifetime
		}
		if idle > 0 {
			cfg.MaxConnIdleTime = idle
		}
	}
}

// WithHealthCheckInterval sets the pool health check period.
func WithHealthCheckInterval(interval time.Duration) PostgresOption {
	return func(cfg *PostgresConfig) {
		if interval > 0 {
			cfg.HealthCheckInterval = interval
		}
	}
}

// WithApplicationName sets the application_name reported to Postgres.
func WithApplicationName(name string) PostgresOption {
	return func(cfg *PostgresConfig) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.ApplicationName = trimmed
		}
	}
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens a Postgres-backed repository and ensures the
// schema exists.
func NewPostgresRepository(dsn string, opts ...PostgresOption) (Repository, error) {
	cfg := PostgresConfig{DSN: dsn, ApplicationName: "jukebot"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ApplicationName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	repo := &postgresRepository{pool: pool}
	if err := repo.EnsureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) CreateSubject(ctx context.Context, params CreateSubjectParams) (models.Subject, error) {
	folded := FoldName(params.Name)
	if folded == "" {
		return models.Subject{}, errors.New("subject name is required")
	}
	if params.Level != "" {
		if _, err := auth.ParseLevel(params.Level); err != nil {
			return models.Subject{}, err
		}
	}
	var passwordHash string
	if params.Password != "" {
		hashed, err := hashPassword(params.Password)
		if err != nil {
			return models.Subject{}, err
		}
		passwordHash = hashed
	}
	var secret string
	if params.WithSecret {
		generated, err := generateAuthSecret()
		if err != nil {
			return models.Subject{}, err
		}
		secret = generated
	}
	subject := models.Subject{
		Name:         params.Name,
		AuthSecret:   secret,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	err := r.pool.QueryRow(ctx, `
INSERT INTO subjects (name, name_folded, auth_secret, password_hash, created_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
RETURNING id
`, subject.Name, folded, subject.AuthSecret, subject.PasswordHash, subject.CreatedAt).Scan(&subject.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Subject{}, fmt.Errorf("subject name %q already in use", params.Name)
		}
		return models.Subject{}, fmt.Errorf("insert subject: %w", err)
	}
	if params.Level != "" {
		if err := r.SetSubjectProperty(ctx, subject.ID, auth.LevelProperty, params.Level); err != nil {
			return models.Subject{}, err
		}
	}
	return subject, nil
}

const subjectColumns = `id, name, COALESCE(auth_secret, ''), COALESCE(password_hash, ''), created_at`

func scanSubject(row pgx.Row) (models.Subject, bool, error) {
	var subject models.Subject
	err := row.Scan(&subject.ID, &subject.Name, &subject.AuthSecret, &subject.PasswordHash, &subject.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Subject{}, false, nil
		}
		return models.Subject{}, false, err
	}
	return subject, true, nil
}

func (r *postgresRepository) FindSubjectByID(ctx context.Context, id int64) (models.Subject, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
	return scanSubject(row)
}

func (r *postgresRepository) FindSubjectByName(ctx context.Context, name string) (models.Subject, bool, error) {
	folded := FoldName(name)
	if folded == "" {
		return models.Subject{}, false, nil
	}
	row := r.pool.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE name_folded = $1`, folded)
	return scanSubject(row)
}

func (r *postgresRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()
	subjects := make([]models.Subject, 0)
	for rows.Next() {
		var subject models.Subject
		if err := rows.Scan(&subject.ID, &subject.Name, &subject.AuthSecret, &subject.PasswordHash, &subject.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func (r *postgresRepository) UpdateSubjectName(ctx context.Context, id int64, name string) (models.Subject, error) {
	folded := FoldName(name)
	if folded == "" {
		return models.Subject{}, errors.New("subject name is required")
	}
	tag, err := r.pool.Exec(ctx, `UPDATE subjects SET name = $2, name_folded = $3 WHERE id = $1`, id, name, folded)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Subject{}, fmt.Errorf("subject name %q already in use", name)
		}
		return models.Subject{}, fmt.Errorf("update subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Subject{}, ErrNotFound
	}
	subject, _, err := r.FindSubjectByID(ctx, id)
	return subject, err
}

func (r *postgresRepository) DeleteSubject(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) AuthenticateSubject(ctx context.Context, name, password string) (models.Subject, error) {
	if password == "" {
		return models.Subject{}, errors.New("password is required")
	}
	subject, ok, err := r.FindSubjectByName(ctx, name)
	if err != nil {
		return models.Subject{}, err
	}
	if !ok {
		return models.Subject{}, ErrInvalidCredentials
	}
	if subject.PasswordHash == "" {
		return models.Subject{}, ErrPasswordLoginUnsupported
	}
	if err := verifyPassword(subject.PasswordHash, password); err != nil {
		return models.Subject{}, err
	}
	return subject, nil
}

func (r *postgresRepository) SetSubjectPassword(ctx context.Context, id int64, password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE subjects SET password_hash = $2 WHERE id = $1`, id, hashed)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) RotateAuthSecret(ctx context.Context, id int64) (models.Subject, error) {
	secret, err := generateAuthSecret()
	if err != nil {
		return models.Subject{}, err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE subjects SET auth_secret = $2 WHERE id = $1`, id, secret)
	if err != nil {
		return models.Subject{}, fmt.Errorf("rotate auth secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Subject{}, ErrNotFound
	}
	subject, _, err := r.FindSubjectByID(ctx, id)
	return subject, err
}

func (r *postgresRepository) SubjectProperty(ctx context.Context, id int64, name string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `
SELECT value FROM subject_properties WHERE subject_id = $1 AND name = $2
`, id, name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *postgresRepository) SetSubjectProperty(ctx context.Context, id int64, name, value string) error {
	if name == "" {
		return errors.New("property name is required")
	}
	if value == "" {
		_, err := r.pool.Exec(ctx, `DELETE FROM subject_properties WHERE subject_id = $1 AND name = $2`, id, name)
		return err
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO subject_properties (subject_id, name, value)
VALUES ($1, $2, $3)
ON CONFLICT (subject_id, name) DO UPDATE SET value = EXCLUDED.value
`, id, name, value)
	if err != nil && isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *postgresRepository) IsGloballyBanned(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM subject_bans WHERE subject_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *postgresRepository) SetGlobalBan(ctx context.Context, id int64, banned bool) error {
	if banned {
		_, err := r.pool.Exec(ctx, `
INSERT INTO subject_bans (subject_id, banned_at)
VALUES ($1, now())
ON CONFLICT (subject_id) DO NOTHING
`, id)
		if err != nil && isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return err
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM subject_bans WHERE subject_id = $1`, id)
	return err
}

func (r *postgresRepository) CreateChannel(ctx context.Context, ownerID int64, title, commandPrefix string) (models.Channel, error) {
	if title == "" {
		return models.Channel{}, errors.New("channel title is required")
	}
	if commandPrefix == "" {
		commandPrefix = "!"
	}
	now := time.Now().UTC()
	channel := models.Channel{
		OwnerID:       ownerID,
		Title:         title,
		CommandPrefix: commandPrefix,
		BotEnabled:    true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := r.pool.QueryRow(ctx, `
INSERT INTO channels (owner_id, title, command_prefix, bot_enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id
`, ownerID, title, commandPrefix, channel.BotEnabled, now).Scan(&channel.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Channel{}, fmt.Errorf("owner %d: %w", ownerID, ErrNotFound)
		}
		return models.Channel{}, fmt.Errorf("insert channel: %w", err)
	}
	return channel, nil
}

const channelColumns = `id, owner_id, title, command_prefix, bot_enabled, created_at, updated_at`

func (r *postgresRepository) GetChannel(ctx context.Context, id int64) (models.Channel, bool, error) {
	var channel models.Channel
	err := r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id).Scan(
		&channel.ID, &channel.OwnerID, &channel.Title, &channel.CommandPrefix,
		&channel.BotEnabled, &channel.CreatedAt, &channel.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Channel{}, false, nil
		}
		return models.Channel{}, false, err
	}
	return channel, true, nil
}

func (r *postgresRepository) ListChannels(ctx context.Context) ([]models.Channel, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()
	channels := make([]models.Channel, 0)
	for rows.Next() {
		var channel models.Channel
		if err := rows.Scan(&channel.ID, &channel.OwnerID, &channel.Title, &channel.CommandPrefix,
			&channel.BotEnabled, &channel.CreatedAt, &channel.UpdatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func (r *postgresRepository) UpdateChannel(ctx context.Context, id int64, update ChannelUpdate) (models.Channel, error) {
	channel, ok, err := r.GetChannel(ctx, id)
	if err != nil {
		return models.Channel{}, err
	}
	if !ok {
		return models.Channel{}, ErrNotFound
	}
	if update.Title != nil {
		if *update.Title == "" {
			return models.Channel{}, errors.New("channel title is required")
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
	_, err = r.pool.Exec(ctx, `
UPDATE channels SET title = $2, command_prefix = $3, bot_enabled = $4, updated_at = $5 WHERE id = $1
`, id, channel.Title, channel.CommandPrefix, channel.BotEnabled, channel.UpdatedAt)
	if err != nil {
		return models.Channel{}, fmt.Errorf("update channel: %w", err)
	}
	return channel, nil
}

func (r *postgresRepository) DeleteChannel(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) CreateTrack(ctx context.Context, params CreateTrackParams) (models.Track, error) {
	if params.Title == "" {
		return models.Track{}, errors.New("track title is required")
	}
	if params.DurationSeconds < 0 {
		return models.Track{}, errors.New("track duration cannot be negative")
	}
	track := models.Track{
		ChannelID:       params.ChannelID,
		Title:           params.Title,
		Artist:          params.Artist,
		DurationSeconds: params.DurationSeconds,
		RequestedBy:     params.RequestedBy,
		CreatedAt:       time.Now().UTC(),
	}
	err := r.pool.QueryRow(ctx, `
INSERT INTO tracks (channel_id, title, artist, duration_seconds, requested_by, play_count, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, 0), 0, $6)
RETURNING id
`, track.ChannelID, track.Title, track.Artist, track.DurationSeconds, track.RequestedBy, track.CreatedAt).Scan(&track.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Track{}, fmt.Errorf("channel %d: %w", params.ChannelID, ErrNotFound)
		}
		return models.Track{}, fmt.Errorf("insert track: %w", err)
	}
	return track, nil
}

const trackColumns = `id, channel_id, title, COALESCE(artist, ''), duration_seconds, COALESCE(requested_by, 0), play_count, created_at`

func scanTrack(row pgx.Row) (models.Track, bool, error) {
	var track models.Track
	err := row.Scan(&track.ID, &track.ChannelID, &track.Title, &track.Artist,
		&track.DurationSeconds, &track.RequestedBy, &track.PlayCount, &track.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Track{}, false, nil
		}
		return models.Track{}, false, err
	}
	return track, true, nil
}

func (r *postgresRepository) GetTrack(ctx context.Context, id int64) (models.Track, bool, error) {
	return scanTrack(r.pool.QueryRow(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = $1`, id))
}

func (r *postgresRepository) ListTracks(ctx context.Context, channelID int64) ([]models.Track, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+trackColumns+` FROM tracks WHERE channel_id = $1 ORDER BY id`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()
	tracks := make([]models.Track, 0)
	for rows.Next() {
		var track models.Track
		if err := rows.Scan(&track.ID, &track.ChannelID, &track.Title, &track.Artist,
			&track.DurationSeconds, &track.RequestedBy, &track.PlayCount, &track.CreatedAt); err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

func (r *postgresRepository) MarkTrackPlayed(ctx context.Context, id int64) (models.Track, error) {
	track, ok, err := scanTrack(r.pool.QueryRow(ctx, `
UPDATE tracks SET play_count = play_count + 1 WHERE id = $1
RETURNING `+trackColumns, id))
	if err != nil {
		return models.Track{}, fmt.Errorf("mark track played: %w", err)
	}
	if !ok {
		return models.Track{}, ErrNotFound
	}
	return track, nil
}

func (r *postgresRepository) DeleteTrack(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tracks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) CreateSuggestion(ctx context.Context, authorID int64, text string) (models.Suggestion, error) {
	if text == "" {
		return models.Suggestion{}, errors.New("suggestion text is required")
	}
	suggestion := models.Suggestion{
		AuthorID:  authorID,
		Text:      text,
		Status:    models.SuggestionOpen,
		CreatedAt: time.Now().UTC(),
	}
	err := r.pool.QueryRow(ctx, `
INSERT INTO suggestions (author_id, text, status, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`, authorID, text, suggestion.Status, suggestion.CreatedAt).Scan(&suggestion.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Suggestion{}, fmt.Errorf("author %d: %w", authorID, ErrNotFound)
		}
		return models.Suggestion{}, fmt.Errorf("insert suggestion: %w", err)
	}
	return suggestion, nil
}

const suggestionColumns = `id, author_id, text, status, COALESCE(resolver_id, 0), created_at, resolved_at`

func scanSuggestion(row pgx.Row) (models.Suggestion, bool, error) {
	var suggestion models.Suggestion
	err := row.Scan(&suggestion.ID, &suggestion.AuthorID, &suggestion.Text, &suggestion.Status,
		&suggestion.ResolverID, &suggestion.CreatedAt, &suggestion.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Suggestion{}, false, nil
		}
		return models.Suggestion{}, false, err
	}
	return suggestion, true, nil
}

func (r *postgresRepository) GetSuggestion(ctx context.Context, id int64) (models.Suggestion, bool, error) {
	return scanSuggestion(r.pool.QueryRow(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id))
}

func (r *postgresRepository) ListSuggestions(ctx context.Context, status string) ([]models.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()
	suggestions := make([]models.Suggestion, 0)
	for rows.Next() {
		var suggestion models.Suggestion
		if err := rows.Scan(&suggestion.ID, &suggestion.AuthorID, &suggestion.Text, &suggestion.Status,
			&suggestion.ResolverID, &suggestion.CreatedAt, &suggestion.ResolvedAt); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, rows.Err()
}

func (r *postgresRepository) ResolveSuggestion(ctx context.Context, id, resolverID int64, status string) (models.Suggestion, error) {
	if status != models.SuggestionAccepted && status != models.SuggestionRejected {
		return models.Suggestion{}, fmt.Errorf("invalid resolution status %q", status)
	}
	suggestion, ok, err := scanSuggestion(r.pool.QueryRow(ctx, `
UPDATE suggestions SET status = $3, resolver_id = $2, resolved_at = now()
WHERE id = $1 AND status = 'open'
RETURNING `+suggestionColumns, id, resolverID, status))
	if err != nil {
		return models.Suggestion{}, fmt.Errorf("resolve suggestion: %w", err)
	}
	if !ok {
		if _, exists, err := r.GetSuggestion(ctx, id); err == nil && exists {
			return models.Suggestion{}, fmt.Errorf("suggestion %d already resolved", id)
		}
		return models.Suggestion{}, ErrNotFound
	}
	return suggestion, nil
}

func (r *postgresRepository) DeleteSuggestion(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suggestions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
