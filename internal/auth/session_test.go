package auth

import (
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	manager := NewSessionManager(time.Hour)

	token, expiresAt, err := manager.Create(42)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute {
		t.Fatalf("expiry too soon: %v remaining", remaining)
	}

	subjectID, _, ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !ok || subjectID != 42 {
		t.Fatalf("expected valid session for subject 42, got ok=%v subject=%d", ok, subjectID)
	}

	if err := manager.Revoke(token); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, _, ok, _ := manager.Validate(token); ok {
		t.Fatal("expected revoked token to be invalid")
	}
}

func TestSessionCreateRequiresSubject(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	for _, id := range []int64{0, -1} {
		if _, _, err := manager.Create(id); err != ErrInvalidSubjectID {
			t.Fatalf("Create(%d): expected ErrInvalidSubjectID, got %v", id, err)
		}
	}
}

func TestSessionValidateUnknownToken(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, ok, err := manager.Validate("deadbeef"); ok || err != nil {
		t.Fatalf("expected unknown token to be silently invalid, got ok=%v err=%v", ok, err)
	}
	if _, _, ok, err := manager.Validate(""); ok || err != nil {
		t.Fatalf("expected empty token to be silently invalid, got ok=%v err=%v", ok, err)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	token, _, err := manager.Create(7)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	hashed, err := hashSessionToken(token)
	if err != nil {
		t.Fatalf("hashSessionToken returned error: %v", err)
	}
	past := time.Now().Add(-time.Minute).UTC()
	if err := store.Save(hashed, 7, past, past); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if _, _, ok, err := manager.Validate(token); ok || err != nil {
		t.Fatalf("expected expired session to be invalid, got ok=%v err=%v", ok, err)
	}
	if _, found, _ := store.Get(hashed); found {
		t.Fatal("expected expired session to be removed on validation")
	}
}

func TestSessionIdleRefresh(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(24*time.Hour, WithStore(store), WithIdleTimeout(time.Hour))

	token, expiresAt, err := manager.Create(7)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining > 2*time.Hour {
		t.Fatalf("idle expiry should be near one hour, got %v remaining", remaining)
	}

	hashed, err := hashSessionToken(token)
	if err != nil {
		t.Fatalf("hashSessionToken returned error: %v", err)
	}
	record, ok, err := store.Get(hashed)
	if err != nil || !ok {
		t.Fatalf("expected stored session, got ok=%v err=%v", ok, err)
	}
	// Rewind the idle deadline as if the session was last touched half an
	// hour ago; the next validation must push it forward again.
	stale := time.Now().Add(30 * time.Minute).UTC()
	if err := store.Save(hashed, 7, stale, record.AbsoluteExpiresAt); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	_, refreshed, ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected session to remain valid")
	}
	if !refreshed.After(stale) {
		t.Fatalf("expected idle refresh past %v, got %v", stale, refreshed)
	}
	if refreshed.After(record.AbsoluteExpiresAt) {
		t.Fatalf("idle refresh must not exceed the absolute deadline %v, got %v", record.AbsoluteExpiresAt, refreshed)
	}
}

func TestSessionIdleRefreshCappedByAbsoluteTTL(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(45*time.Minute, WithStore(store), WithIdleTimeout(time.Hour))

	token, expiresAt, err := manager.Create(7)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining > 46*time.Minute {
		t.Fatalf("expiry must be capped at the absolute deadline, got %v remaining", remaining)
	}

	_, refreshed, ok, err := manager.Validate(token)
	if err != nil || !ok {
		t.Fatalf("Validate: ok=%v err=%v", ok, err)
	}
	if remaining := time.Until(refreshed); remaining > 46*time.Minute {
		t.Fatalf("refresh must be capped at the absolute deadline, got %v remaining", remaining)
	}
}

func TestSessionSharedStore(t *testing.T) {
	store := NewMemorySessionStore()
	first := NewSessionManager(time.Hour, WithStore(store))
	second := NewSessionManager(time.Hour, WithStore(store))

	token, _, err := first.Create(9)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	subjectID, _, ok, err := second.Validate(token)
	if err != nil || !ok || subjectID != 9 {
		t.Fatalf("expected shared store validation, got subject=%d ok=%v err=%v", subjectID, ok, err)
	}
}

func TestSessionPurgeExpired(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	live, _, err := manager.Create(1)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	dead, _, err := manager.Create(2)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	hashed, err := hashSessionToken(dead)
	if err != nil {
		t.Fatalf("hashSessionToken returned error: %v", err)
	}
	past := time.Now().Add(-time.Minute).UTC()
	if err := store.Save(hashed, 2, past, past); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if err := manager.PurgeExpired(); err != nil {
		t.Fatalf("PurgeExpired returned error: %v", err)
	}
	if _, found, _ := store.Get(hashed); found {
		t.Fatal("expected expired session to be purged")
	}
	if _, _, ok, _ := manager.Validate(live); !ok {
		t.Fatal("expected live session to survive the purge")
	}
}
