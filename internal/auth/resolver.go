package auth

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"jukebot/internal/models"
)

// LevelProperty is the subject property holding the authorization level.
const LevelProperty = "user_level"

// Directory is the read side of the subject datastore the resolver consults.
// Implementations perform I/O and must honour the context.
type Directory interface {
	FindSubjectByID(ctx context.Context, id int64) (models.Subject, bool, error)
	FindSubjectByName(ctx context.Context, name string) (models.Subject, bool, error)
	SubjectProperty(ctx context.Context, id int64, name string) (string, bool, error)
	IsGloballyBanned(ctx context.Context, id int64) (bool, error)
}

// Request is the read-only view of an inbound request the resolver needs:
// query parameters, a named header, and the ambient session when the HTTP
// layer supplied one. Session reports ok=false when no session context exists
// at all, which is distinct from an empty (anonymous) session.
type Request interface {
	Param(name string) string
	Header(name string) string
	Session() (Session, bool)
}

// Session is the ambient session carrier. A zero SubjectID means the visitor
// is not logged in.
type Session struct {
	SubjectID int64
}

// Identity is a successful resolution. Anonymous requests resolve to
// LevelNone with no subject; that is a success, not an error, so callers can
// distinguish "not authenticated" from "authentication attempted and failed".
type Identity struct {
	Level     Level
	SubjectID int64
	Subject   *models.Subject

	// Scheme names the credential scheme that produced this identity.
	Scheme string
}

// Anonymous reports whether the identity carries no concrete subject.
func (id Identity) Anonymous() bool {
	return id.Subject == nil
}

// Options adjusts resolution behaviour for a single call.
type Options struct {
	// IgnoreGlobalBan skips the ban overlay, for endpoints that must remain
	// reachable by banned subjects (appeal flows, account export).
	IgnoreGlobalBan bool
}

// Resolver turns an inbound request into an Identity by trying each
// credential scheme in priority order and overlaying the global ban flag.
type Resolver struct {
	dir      Directory
	tokens   *LocalTokens
	schemes  []scheme
	banCalls singleflight.Group
}

// NewResolver constructs a resolver over the directory and local token store.
func NewResolver(dir Directory, tokens *LocalTokens) *Resolver {
	if tokens == nil {
		tokens = NewLocalTokens()
	}
	return &Resolver{
		dir:    dir,
		tokens: tokens,
		schemes: []scheme{
			querySecretScheme{},
			structuredHeaderScheme{},
			localRequestScheme{},
			ambientSessionScheme{},
		},
	}
}

// GrantLocalToken records a single-use grant so an immediately following
// self-directed request carrying the subject ID as local-request credential
// resolves without re-deriving credentials. Trusted internal callers only.
func (r *Resolver) GrantLocalToken(subjectID int64) {
	r.tokens.Grant(subjectID)
}

// LocalTokens exposes the grant registry for observability.
func (r *Resolver) LocalTokens() *LocalTokens {
	return r.tokens
}

// Resolve evaluates the credential schemes in priority order, validates the
// first one whose preconditions hold, and applies the ban overlay. A failing
// winner is returned as a structured *Error; lower-priority schemes are never
// consulted as a fallback. When no scheme matches at all the calling layer is
// misconfigured and the result is KindSessionUnavailable.
func (r *Resolver) Resolve(ctx context.Context, req Request, opts Options) (Identity, error) {
	for _, s := range r.schemes {
		if !s.matches(req) {
			continue
		}
		subject, err := s.authenticate(ctx, r, req)
		if err != nil {
			return Identity{}, err
		}
		if subject == nil {
			return Identity{Level: LevelNone, Scheme: s.name()}, nil
		}
		if !opts.IgnoreGlobalBan {
			banned, err := r.subjectBanned(ctx, subject.ID)
			if err != nil {
				return Identity{}, fmt.Errorf("ban lookup for subject %d: %w", subject.ID, err)
			}
			if banned {
				return Identity{}, newError(KindAccessRevoked, "access revoked")
			}
		}
		level, err := r.subjectLevel(ctx, subject.ID)
		if err != nil {
			return Identity{}, err
		}
		return Identity{Level: level, SubjectID: subject.ID, Subject: subject, Scheme: s.name()}, nil
	}
	return Identity{}, newError(KindSessionUnavailable, "no session context available")
}

// subjectLevel applies the explicit defaulting rule: a concrete subject whose
// level property is unset holds LevelLogin. A stored value outside the level
// table is a data fault and propagates as a plain error, never as a success.
func (r *Resolver) subjectLevel(ctx context.Context, id int64) (Level, error) {
	value, ok, err := r.dir.SubjectProperty(ctx, id, LevelProperty)
	if err != nil {
		return "", fmt.Errorf("level lookup for subject %d: %w", id, err)
	}
	if !ok || value == "" {
		return LevelLogin, nil
	}
	return ParseLevel(value)
}

// subjectBanned collapses concurrent ban lookups for the same subject into a
// single directory call.
func (r *Resolver) subjectBanned(ctx context.Context, id int64) (bool, error) {
	result, err, _ := r.banCalls.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		return r.dir.IsGloballyBanned(ctx, id)
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
