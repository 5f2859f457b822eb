package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"jukebot/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	authSecretLength = 24
)

// AuthenticateSubject verifies site-login credentials and returns the
// matching subject on success.
func (s *Storage) AuthenticateSubject(ctx context.Context, name, password string) (models.Subject, error) {
	if password == "" {
		return models.Subject{}, errors.New("password is required")
	}
	subject, ok, err := s.FindSubjectByName(ctx, name)
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
		if errors.Is(err, ErrInvalidCredentials) {
			return models.Subject{}, ErrInvalidCredentials
		}
		return models.Subject{}, err
	}
	return subject, nil
}

// SetSubjectPassword replaces the stored password hash for the subject.
func (s *Storage) SetSubjectPassword(ctx context.Context, id int64, password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.mutate(func(data *dataset) error {
		subject, ok := data.Subjects[id]
		if !ok {
			return ErrNotFound
		}
		subject.PasswordHash = hashed
		data.Subjects[id] = subject
		return nil
	})
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encodedHash, candidate string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return fmt.Errorf("verify password: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return fmt.Errorf("verify password: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("verify password: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("verify password: decode salt: %w", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("verify password: decode hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func generateAuthSecret() (string, error) {
	bytes := make([]byte, authSecretLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate auth secret: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
