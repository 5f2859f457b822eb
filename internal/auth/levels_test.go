package auth

import (
	"errors"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, value := range []string{"none", "login", "editor", "admin"} {
		level, err := ParseLevel(value)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", value, err)
		}
		if string(level) != value {
			t.Fatalf("ParseLevel(%q) = %q", value, level)
		}
	}
}

func TestParseLevelRejectsUnknownNames(t *testing.T) {
	for _, value := range []string{"", "moderator", "Admin", "ADMIN", "superuser"} {
		if _, err := ParseLevel(value); !errors.Is(err, ErrUnknownLevel) {
			t.Fatalf("ParseLevel(%q) error = %v, want ErrUnknownLevel", value, err)
		}
	}
}

func TestAtLeastOrdering(t *testing.T) {
	ordered := []Level{LevelNone, LevelLogin, LevelEditor, LevelAdmin}
	for i, actual := range ordered {
		for j, required := range ordered {
			allowed, err := AtLeast(actual, required)
			if err != nil {
				t.Fatalf("AtLeast(%s, %s) returned error: %v", actual, required, err)
			}
			if want := i >= j; allowed != want {
				t.Fatalf("AtLeast(%s, %s) = %v, want %v", actual, required, allowed, want)
			}
		}
	}
}

func TestAtLeastUnknownLevel(t *testing.T) {
	if _, err := AtLeast(Level("root"), LevelAdmin); !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("expected ErrUnknownLevel for unknown actual, got %v", err)
	}
	if _, err := AtLeast(LevelAdmin, Level("root")); !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("expected ErrUnknownLevel for unknown required, got %v", err)
	}
}
