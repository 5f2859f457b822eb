package storage

import (
	"context"
	"fmt"
)

// schemaStatements create the tables the repository and the session store
// rely on. Statements are idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	name_folded TEXT NOT NULL UNIQUE,
	auth_secret TEXT,
	password_hash TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS subject_properties (
	subject_id BIGINT NOT NULL REFERENCES subjects (id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (subject_id, name)
)`,
	`CREATE TABLE IF NOT EXISTS subject_bans (
	subject_id BIGINT PRIMARY KEY REFERENCES subjects (id) ON DELETE CASCADE,
	banned_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS channels (
	id BIGSERIAL PRIMARY KEY,
	owner_id BIGINT NOT NULL REFERENCES subjects (id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	command_prefix TEXT NOT NULL DEFAULT '!',
	bot_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS tracks (
	id BIGSERIAL PRIMARY KEY,
	channel_id BIGINT NOT NULL REFERENCES channels (id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	artist TEXT,
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	requested_by BIGINT REFERENCES subjects (id) ON DELETE SET NULL,
	play_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS tracks_channel_idx ON tracks (channel_id)`,
	`CREATE TABLE IF NOT EXISTS suggestions (
	id BIGSERIAL PRIMARY KEY,
	author_id BIGINT NOT NULL REFERENCES subjects (id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	resolver_id BIGINT REFERENCES subjects (id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ
)`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
	token_hash TEXT PRIMARY KEY,
	subject_id BIGINT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	absolute_expires_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS auth_sessions_expiry_idx ON auth_sessions (expires_at)`,
}

// EnsureSchema applies the idempotent schema statements.
func (r *postgresRepository) EnsureSchema(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if _, err := r.pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
