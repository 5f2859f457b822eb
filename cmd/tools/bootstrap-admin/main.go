// Command bootstrap-admin seeds or updates an administrator account in the datastore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"jukebot/internal/auth"
	"jukebot/internal/models"
	"jukebot/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		name        string
		password    string
		withSecret  bool
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&name, "name", "", "Name for the admin account")
	flag.StringVar(&password, "password", "", "Password for the admin account")
	flag.BoolVar(&withSecret, "with-secret", false, "Also issue an API auth secret")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(name) == "" {
		fatalf("--name is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}

	repo, err := openRepository(jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer closeRepository(repo)

	subject, created, err := bootstrapAdmin(ctx, repo, strings.TrimSpace(name), password, withSecret)
	if err != nil {
		fatalf("bootstrap admin: %v", err)
	}

	state := "updated"
	if created {
		state = "created"
	}
	fmt.Printf("Admin %s (id %d) %s successfully.\n", subject.Name, subject.ID, state)
	if subject.AuthSecret != "" {
		fmt.Printf("Auth secret: %s\n", subject.AuthSecret)
	}
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewJSONRepository(jsonPath)
	}
	return storage.NewPostgresRepository(postgresDSN)
}

func closeRepository(repo storage.Repository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = repo.Close(ctx)
}

func bootstrapAdmin(ctx context.Context, repo storage.Repository, name, password string, withSecret bool) (models.Subject, bool, error) {
	existing, ok, err := repo.FindSubjectByName(ctx, name)
	if err != nil {
		return models.Subject{}, false, err
	}
	if ok {
		return updateAdmin(ctx, repo, existing, password, withSecret)
	}

	subject, err := repo.CreateSubject(ctx, storage.CreateSubjectParams{
		Name:       name,
		Password:   password,
		Level:      string(auth.LevelAdmin),
		WithSecret: withSecret,
	})
	if err != nil {
		return models.Subject{}, false, err
	}
	return subject, true, nil
}

func updateAdmin(ctx context.Context, repo storage.Repository, existing models.Subject, password string, withSecret bool) (models.Subject, bool, error) {
	if err := repo.SetSubjectProperty(ctx, existing.ID, auth.LevelProperty, string(auth.LevelAdmin)); err != nil {
		return models.Subject{}, false, err
	}
	if err := repo.SetSubjectPassword(ctx, existing.ID, password); err != nil {
		return models.Subject{}, false, err
	}
	updated := existing
	if withSecret {
		rotated, err := repo.RotateAuthSecret(ctx, existing.ID)
		if err != nil {
			return models.Subject{}, false, err
		}
		updated = rotated
	}
	return updated, false, nil
}
