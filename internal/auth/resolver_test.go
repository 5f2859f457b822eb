package auth

import (
	"context"
	"errors"
	"testing"

	"jukebot/internal/models"
)

type fakeDirectory struct {
	subjects map[int64]models.Subject
	props    map[int64]map[string]string
	bans     map[int64]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		subjects: make(map[int64]models.Subject),
		props:    make(map[int64]map[string]string),
		bans:     make(map[int64]bool),
	}
}

func (d *fakeDirectory) addSubject(subject models.Subject, level string) {
	d.subjects[subject.ID] = subject
	if level != "" {
		if d.props[subject.ID] == nil {
			d.props[subject.ID] = make(map[string]string)
		}
		d.props[subject.ID][LevelProperty] = level
	}
}

func (d *fakeDirectory) FindSubjectByID(_ context.Context, id int64) (models.Subject, bool, error) {
	subject, ok := d.subjects[id]
	return subject, ok, nil
}

func (d *fakeDirectory) FindSubjectByName(_ context.Context, name string) (models.Subject, bool, error) {
	for _, subject := range d.subjects {
		if subject.Name == name {
			return subject, true, nil
		}
	}
	return models.Subject{}, false, nil
}

func (d *fakeDirectory) SubjectProperty(_ context.Context, id int64, name string) (string, bool, error) {
	value, ok := d.props[id][name]
	return value, ok, nil
}

func (d *fakeDirectory) IsGloballyBanned(_ context.Context, id int64) (bool, error) {
	return d.bans[id], nil
}

type fakeRequest struct {
	params     map[string]string
	headers    map[string]string
	session    Session
	hasSession bool
}

func (r fakeRequest) Param(name string) string {
	return r.params[name]
}

func (r fakeRequest) Header(name string) string {
	return r.headers[name]
}

func (r fakeRequest) Session() (Session, bool) {
	return r.session, r.hasSession
}

func sessionRequest(subjectID int64) fakeRequest {
	return fakeRequest{session: Session{SubjectID: subjectID}, hasSession: true}
}

func mustResolveError(t *testing.T, resolver *Resolver, req Request, kind Kind) *Error {
	t.Helper()
	_, err := resolver.Resolve(context.Background(), req, Options{})
	resErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected structured resolution error, got %v", err)
	}
	if resErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, resErr.Kind, resErr)
	}
	return resErr
}

func TestResolveWithoutSessionContext(t *testing.T) {
	resolver := NewResolver(newFakeDirectory(), nil)
	resErr := mustResolveError(t, resolver, fakeRequest{}, KindSessionUnavailable)
	if resErr.HTTPStatus() != 440 {
		t.Fatalf("expected status 440, got %d", resErr.HTTPStatus())
	}
}

func TestResolveAnonymousSession(t *testing.T) {
	resolver := NewResolver(newFakeDirectory(), nil)
	identity, err := resolver.Resolve(context.Background(), sessionRequest(0), Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !identity.Anonymous() || identity.Level != LevelNone {
		t.Fatalf("expected anonymous none identity, got %+v", identity)
	}
}

func TestResolveSessionLevelDefaulting(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 1, Name: "ana"}, "")
	dir.addSubject(models.Subject{ID: 2, Name: "ben"}, "editor")
	resolver := NewResolver(dir, nil)

	identity, err := resolver.Resolve(context.Background(), sessionRequest(1), Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.Level != LevelLogin {
		t.Fatalf("expected unset level to default to login, got %s", identity.Level)
	}

	identity, err = resolver.Resolve(context.Background(), sessionRequest(2), Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.Level != LevelEditor || identity.SubjectID != 2 {
		t.Fatalf("expected editor identity for subject 2, got %+v", identity)
	}
}

func TestResolveCorruptStoredLevel(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 3, Name: "cara"}, "wizard")
	resolver := NewResolver(dir, nil)

	_, err := resolver.Resolve(context.Background(), sessionRequest(3), Options{})
	if err == nil {
		t.Fatal("expected error for corrupt stored level")
	}
	if _, ok := AsError(err); ok {
		t.Fatalf("corrupt level must not surface as resolution error, got %v", err)
	}
	if !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("expected ErrUnknownLevel, got %v", err)
	}
}

func TestResolveStaleSessionIsAnonymous(t *testing.T) {
	resolver := NewResolver(newFakeDirectory(), nil)
	identity, err := resolver.Resolve(context.Background(), sessionRequest(123), Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !identity.Anonymous() {
		t.Fatalf("expected stale session to resolve anonymously, got %+v", identity)
	}
}

func TestQuerySecretByID(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 42, Name: "dee", AuthSecret: "s3cret"}, "admin")
	resolver := NewResolver(dir, nil)

	req := fakeRequest{params: map[string]string{ParamAuthUser: "42", ParamAuthKey: "s3cret"}}
	identity, err := resolver.Resolve(context.Background(), req, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.SubjectID != 42 || identity.Level != LevelAdmin {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if identity.Scheme != "query-secret" {
		t.Fatalf("expected query-secret scheme, got %s", identity.Scheme)
	}
}

func TestQuerySecretByName(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 9, Name: "abc", AuthSecret: "topsecret"}, "editor")
	resolver := NewResolver(dir, nil)

	req := fakeRequest{params: map[string]string{ParamAuthUser: "abc", ParamAuthKey: "topsecret"}}
	identity, err := resolver.Resolve(context.Background(), req, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.SubjectID != 9 || identity.Level != LevelEditor {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestQuerySecretFailures(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 42, Name: "dee", AuthSecret: "s3cret"}, "admin")
	dir.addSubject(models.Subject{ID: 5, Name: "nosecret"}, "")
	resolver := NewResolver(dir, nil)

	wrongKey := fakeRequest{params: map[string]string{ParamAuthUser: "42", ParamAuthKey: "wrong"}}
	mustResolveError(t, resolver, wrongKey, KindInvalidSecret)

	unknown := fakeRequest{params: map[string]string{ParamAuthUser: "nobody", ParamAuthKey: "x"}}
	mustResolveError(t, resolver, unknown, KindNoSuchSubject)

	unset := fakeRequest{params: map[string]string{ParamAuthUser: "5", ParamAuthKey: ""}}
	if unset.Param(ParamAuthKey) != "" {
		t.Fatal("test setup: auth key must be empty")
	}
	// An empty auth_key keeps the scheme from matching at all; with a session
	// context present the request degrades to the ambient session.
	unset.hasSession = true
	identity, err := resolver.Resolve(context.Background(), unset, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !identity.Anonymous() {
		t.Fatalf("expected anonymous fallback, got %+v", identity)
	}

	storedEmpty := fakeRequest{params: map[string]string{ParamAuthUser: "5", ParamAuthKey: "anything"}}
	mustResolveError(t, resolver, storedEmpty, KindInvalidSecret)
}

func TestWinningSchemeNeverFallsThrough(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 42, Name: "dee", AuthSecret: "s3cret"}, "admin")
	resolver := NewResolver(dir, nil)

	req := fakeRequest{
		params:     map[string]string{ParamAuthUser: "42", ParamAuthKey: "wrong"},
		session:    Session{SubjectID: 42},
		hasSession: true,
	}
	mustResolveError(t, resolver, req, KindInvalidSecret)
}

func TestStructuredHeader(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 42, Name: "dee", AuthSecret: "s3cret"}, "admin")
	resolver := NewResolver(dir, nil)

	ok := fakeRequest{headers: map[string]string{"Authorization": "Token 42:s3cret"}}
	identity, err := resolver.Resolve(context.Background(), ok, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.SubjectID != 42 || identity.Scheme != "structured-header" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	cases := []struct {
		header string
		kind   Kind
	}{
		{"Bearer 42:s3cret", KindMalformedHeader},
		{"Token", KindMalformedHeader},
		{"Token 42s3cret", KindMalformedHeader},
		{"Token abc:s3cret", KindInvalidIdentifier},
		{"Token 0:s3cret", KindInvalidIdentifier},
		{"Token -4:s3cret", KindInvalidIdentifier},
		{"Token 77:s3cret", KindNoSuchSubject},
		{"Token 42:wrong", KindInvalidSecret},
	}
	for _, tc := range cases {
		req := fakeRequest{headers: map[string]string{"Authorization": tc.header}}
		mustResolveError(t, resolver, req, tc.kind)
	}
}

func TestHeaderOutranksSession(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 42, Name: "dee", AuthSecret: "s3cret"}, "admin")
	dir.addSubject(models.Subject{ID: 1, Name: "ana"}, "")
	resolver := NewResolver(dir, nil)

	req := fakeRequest{
		headers:    map[string]string{"Authorization": "Token 42:s3cret"},
		session:    Session{SubjectID: 1},
		hasSession: true,
	}
	identity, err := resolver.Resolve(context.Background(), req, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.SubjectID != 42 {
		t.Fatalf("expected header credential to win, got subject %d", identity.SubjectID)
	}
}

func TestLocalRequestGrantIsConsumedExactlyOnce(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 7, Name: "gus"}, "editor")
	resolver := NewResolver(dir, nil)
	resolver.GrantLocalToken(7)

	req := fakeRequest{params: map[string]string{ParamLocalUser: "7"}}
	identity, err := resolver.Resolve(context.Background(), req, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.SubjectID != 7 || identity.Level != LevelEditor || identity.Scheme != "local-request" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	mustResolveError(t, resolver, req, KindInvalidLocalToken)
}

func TestLocalRequestRejectsNonNumericSubject(t *testing.T) {
	resolver := NewResolver(newFakeDirectory(), nil)
	req := fakeRequest{params: map[string]string{ParamLocalUser: "gus"}}
	mustResolveError(t, resolver, req, KindInvalidLocalToken)
}

func TestLocalRequestForMissingSubjectIsAnonymous(t *testing.T) {
	resolver := NewResolver(newFakeDirectory(), nil)
	resolver.GrantLocalToken(55)

	req := fakeRequest{params: map[string]string{ParamLocalUser: "55"}}
	identity, err := resolver.Resolve(context.Background(), req, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !identity.Anonymous() || identity.Level != LevelNone {
		t.Fatalf("expected anonymous identity, got %+v", identity)
	}
}

func TestGlobalBanOverlay(t *testing.T) {
	dir := newFakeDirectory()
	dir.addSubject(models.Subject{ID: 42, Name: "dee", AuthSecret: "s3cret"}, "admin")
	dir.bans[42] = true
	resolver := NewResolver(dir, nil)

	req := fakeRequest{params: map[string]string{ParamAuthUser: "42", ParamAuthKey: "s3cret"}}
	resErr := mustResolveError(t, resolver, req, KindAccessRevoked)
	if resErr.HTTPStatus() != 403 {
		t.Fatalf("expected status 403, got %d", resErr.HTTPStatus())
	}

	identity, err := resolver.Resolve(context.Background(), req, Options{IgnoreGlobalBan: true})
	if err != nil {
		t.Fatalf("Resolve with IgnoreGlobalBan returned error: %v", err)
	}
	if identity.SubjectID != 42 {
		t.Fatalf("unexpected identity %+v", identity)
	}
}
