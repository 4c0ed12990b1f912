package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/storage"
)

func init() {
	// Configure testcontainers to use podman when no docker host is set.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a migrated Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("bookstore_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func strPtr(s string) *string { return &s }

func wantKind(t *testing.T, err error, want storage.Kind) *storage.Error {
	t.Helper()
	var se *storage.Error
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a *storage.Error", err)
	}
	if se.Kind != want {
		t.Fatalf("kind = %v, want %v (%v)", se.Kind, want, err)
	}
	return se
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   storage.Kind
		wantFields []string
	}{
		{"no rows", pgx.ErrNoRows, storage.KindNotFound, nil},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), storage.KindNotFound, nil},
		{"unique email", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, storage.KindUniqueViolation, []string{"email"}},
		{"unique unknown constraint", &pgconn.PgError{Code: "23505", ConstraintName: "x", ColumnName: "slug"}, storage.KindUniqueViolation, []string{"slug"}},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "books_author_id_fkey"}, storage.KindForeignKeyViolation, []string{"author_id"}},
		{"bad uuid text", &pgconn.PgError{Code: "22P02"}, storage.KindNotFound, nil},
		{"other pg error", &pgconn.PgError{Code: "57014"}, storage.KindOther, nil},
		{"connection error", errors.New("connection refused"), storage.KindOther, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := wantKind(t, classify(storage.EntityAuthor, "op", tt.err), tt.wantKind)
			if strings.Join(se.Fields, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("Fields = %v, want %v", se.Fields, tt.wantFields)
			}
		})
	}
}

func TestPostgres_Users(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, api.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Role != api.RoleUser {
		t.Errorf("unexpected user %+v", u)
	}

	got, err := store.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "hash" {
		t.Errorf("got %+v", got)
	}

	_, err = store.CreateUser(ctx, api.User{Name: "Ada 2", Email: "ada@example.com", PasswordHash: "hash"})
	se := wantKind(t, err, storage.KindUniqueViolation)
	if len(se.Fields) != 1 || se.Fields[0] != "email" {
		t.Errorf("Fields = %v, want [email]", se.Fields)
	}

	_, err = store.GetUserByEmail(ctx, "missing@example.com")
	wantKind(t, err, storage.KindNotFound)
}

func TestPostgres_AuthorLifecycle(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	austen, err := store.CreateAuthor(ctx, "Austen", strPtr("Novelist"))
	if err != nil {
		t.Fatalf("CreateAuthor: %v", err)
	}
	if _, err := store.CreateAuthor(ctx, "Brontë", nil); err != nil {
		t.Fatalf("CreateAuthor: %v", err)
	}

	_, err = store.CreateAuthor(ctx, "Austen", nil)
	wantKind(t, err, storage.KindUniqueViolation)

	list, err := store.ListAuthors(ctx)
	if err != nil {
		t.Fatalf("ListAuthors: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Austen" || list[1].Name != "Brontë" {
		t.Errorf("unexpected order: %+v", list)
	}

	updated, err := store.UpdateAuthor(ctx, austen.ID, api.AuthorPatch{ClearBio: true})
	if err != nil {
		t.Fatalf("UpdateAuthor: %v", err)
	}
	if updated.Bio != nil || updated.Name != "Austen" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	_, err = store.UpdateAuthor(ctx, austen.ID, api.AuthorPatch{Name: strPtr("Brontë")})
	wantKind(t, err, storage.KindUniqueViolation)

	if _, err := store.CreateBook(ctx, api.Book{Title: "Emma", AuthorID: austen.ID}); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	got, err := store.GetAuthor(ctx, austen.ID)
	if err != nil {
		t.Fatalf("GetAuthor: %v", err)
	}
	if got.BookCount == nil || *got.BookCount != 1 {
		t.Errorf("BookCount = %v, want 1", got.BookCount)
	}

	wantKind(t, store.DeleteAuthor(ctx, austen.ID), storage.KindForeignKeyViolation)

	const missing = "00000000-0000-0000-0000-000000000000"
	_, err = store.GetAuthor(ctx, missing)
	wantKind(t, err, storage.KindNotFound)
	wantKind(t, store.DeleteAuthor(ctx, missing), storage.KindNotFound)
	_, err = store.UpdateAuthor(ctx, missing, api.AuthorPatch{Name: strPtr("X")})
	wantKind(t, err, storage.KindNotFound)
}

func TestPostgres_BookConstraints(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateBook(ctx, api.Book{Title: "Orphan", AuthorID: "00000000-0000-0000-0000-000000000000"})
	se := wantKind(t, err, storage.KindForeignKeyViolation)
	if len(se.Fields) != 1 || se.Fields[0] != "author_id" {
		t.Errorf("Fields = %v, want [author_id]", se.Fields)
	}

	a, _ := store.CreateAuthor(ctx, "Austen", nil)
	isbn := strPtr("9780141439587")
	if _, err := store.CreateBook(ctx, api.Book{Title: "Emma", ISBN: isbn, AuthorID: a.ID}); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	_, err = store.CreateBook(ctx, api.Book{Title: "Emma", ISBN: isbn, AuthorID: a.ID})
	wantKind(t, err, storage.KindUniqueViolation)
}

func TestPostgres_MigrationsIdempotent(t *testing.T) {
	store := setupTestDB(t)

	if err := store.migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
