package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"jukebot/internal/models"
)

// Request parameter and header names recognised by the credential schemes.
const (
	ParamAuthUser  = "auth_user"
	ParamAuthKey   = "auth_key"
	ParamLocalUser = "local_user"

	headerAuthorization = "Authorization"
	headerSchemeTag     = "Token"
)

// scheme is one credential shape. matches checks the preconditions only;
// authenticate validates the credential and returns the concrete subject, or
// nil for an anonymous success. The resolver uses the first matching scheme
// exclusively: a malformed credential of the winning scheme is an
// authentication error, never a prompt to try a lower-priority scheme.
type scheme interface {
	name() string
	matches(req Request) bool
	authenticate(ctx context.Context, r *Resolver, req Request) (*models.Subject, error)
}

// querySecretScheme authenticates from auth_user/auth_key request parameters.
// A numeric auth_user is treated as a subject ID, anything else as a name;
// exactly one lookup path is taken.
type querySecretScheme struct{}

func (querySecretScheme) name() string { return "query-secret" }

func (querySecretScheme) matches(req Request) bool {
	return req.Param(ParamAuthUser) != "" && req.Param(ParamAuthKey) != ""
}

func (querySecretScheme) authenticate(ctx context.Context, r *Resolver, req Request) (*models.Subject, error) {
	identifier := req.Param(ParamAuthUser)
	var (
		subject models.Subject
		ok      bool
		err     error
	)
	if id, numErr := strconv.ParseInt(identifier, 10, 64); numErr == nil {
		subject, ok, err = r.dir.FindSubjectByID(ctx, id)
	} else {
		subject, ok, err = r.dir.FindSubjectByName(ctx, identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("subject lookup %q: %w", identifier, err)
	}
	if !ok {
		return nil, newError(KindNoSuchSubject, fmt.Sprintf("unknown subject %q", identifier))
	}
	if err := checkSecret(subject, req.Param(ParamAuthKey)); err != nil {
		return nil, err
	}
	return &subject, nil
}

// structuredHeaderScheme authenticates from "Authorization: Token <id>:<secret>".
type structuredHeaderScheme struct{}

func (structuredHeaderScheme) name() string { return "structured-header" }

func (structuredHeaderScheme) matches(req Request) bool {
	return req.Header(headerAuthorization) != ""
}

func (structuredHeaderScheme) authenticate(ctx context.Context, r *Resolver, req Request) (*models.Subject, error) {
	value := req.Header(headerAuthorization)
	tag, payload, found := strings.Cut(value, " ")
	if !found || tag != headerSchemeTag {
		return nil, newError(KindMalformedHeader, "authorization header must be of the form \"Token <id>:<secret>\"")
	}
	idPart, secret, found := strings.Cut(payload, ":")
	if !found {
		return nil, newError(KindMalformedHeader, "authorization payload must be of the form \"<id>:<secret>\"")
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return nil, newError(KindInvalidIdentifier, fmt.Sprintf("invalid subject id %q", idPart))
	}
	subject, ok, err := r.dir.FindSubjectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("subject lookup %d: %w", id, err)
	}
	if !ok {
		return nil, newError(KindNoSuchSubject, fmt.Sprintf("unknown subject %d", id))
	}
	if err := checkSecret(subject, secret); err != nil {
		return nil, err
	}
	return &subject, nil
}

// localRequestScheme authenticates a self-directed internal request by
// atomically consuming the single-use grant for the named subject ID.
type localRequestScheme struct{}

func (localRequestScheme) name() string { return "local-request" }

func (localRequestScheme) matches(req Request) bool {
	return req.Param(ParamLocalUser) != ""
}

func (localRequestScheme) authenticate(ctx context.Context, r *Resolver, req Request) (*models.Subject, error) {
	raw := req.Param(ParamLocalUser)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, newError(KindInvalidLocalToken, fmt.Sprintf("invalid local token subject %q", raw))
	}
	if !r.tokens.Consume(id) {
		return nil, newError(KindInvalidLocalToken, fmt.Sprintf("no live grant for subject %d", id))
	}
	subject, ok, err := r.dir.FindSubjectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("subject lookup %d: %w", id, err)
	}
	if !ok {
		// The internal caller may be exercising an unauthenticated path on
		// purpose; a consumed grant for a nonexistent subject is anonymous.
		return nil, nil
	}
	return &subject, nil
}

// ambientSessionScheme resolves the subject referenced by the ambient session.
type ambientSessionScheme struct{}

func (ambientSessionScheme) name() string { return "ambient-session" }

func (ambientSessionScheme) matches(req Request) bool {
	_, ok := req.Session()
	return ok
}

func (ambientSessionScheme) authenticate(ctx context.Context, r *Resolver, req Request) (*models.Subject, error) {
	session, _ := req.Session()
	if session.SubjectID == 0 {
		return nil, nil
	}
	subject, ok, err := r.dir.FindSubjectByID(ctx, session.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("subject lookup %d: %w", session.SubjectID, err)
	}
	if !ok {
		// Stale session referencing a deleted subject degrades to anonymous.
		return nil, nil
	}
	return &subject, nil
}

// checkSecret compares the presented secret byte-for-byte against the stored
// one without leaking timing. An unset stored secret always fails.
func checkSecret(subject models.Subject, presented string) error {
	if subject.AuthSecret == "" {
		return newError(KindInvalidSecret, "subject has no auth secret")
	}
	if subtle.ConstantTimeCompare([]byte(subject.AuthSecret), []byte(presented)) != 1 {
		return newError(KindInvalidSecret, "auth secret mismatch")
	}
	return nil
}
