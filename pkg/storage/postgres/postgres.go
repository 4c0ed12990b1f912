// Package postgres provides a PostgreSQL implementation of storage.Store.
// It uses pgx/v5 for connection pooling and classifies constraint
// violations into storage error kinds by SQLSTATE and constraint name.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/debug"
	"github.com/rhuss/bookstore/pkg/storage"
)

// SQLSTATE codes classified by the store.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// constraintFields maps named constraints onto the columns they guard.
var constraintFields = map[string][]string{
	"users_email_key":      {"email"},
	"authors_name_key":     {"name"},
	"books_isbn_key":       {"isbn"},
	"books_author_id_fkey": {"author_id"},
}

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := pool.Ping(startCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(startCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const userColumns = "id, name, email, password, role, created_at, updated_at"

func scanUser(row pgx.Row) (*api.User, error) {
	var u api.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = api.Role(role)
	return &u, nil
}

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, u api.User) (*api.User, error) {
	if u.Role == "" {
		u.Role = api.RoleUser
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		u.Name, u.Email, u.PasswordHash, string(u.Role),
	)
	out, err := scanUser(row)
	if err != nil {
		return nil, classify(storage.EntityUser, "inserting user", err)
	}
	return out, nil
}

// GetUserByEmail looks up a user by exact email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*api.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, classify(storage.EntityUser, "querying user", err)
	}
	return u, nil
}

const authorColumns = "id, name, bio, created_at, updated_at"

func scanAuthor(row pgx.Row, extra ...any) (*api.Author, error) {
	var a api.Author
	dest := append([]any{&a.ID, &a.Name, &a.Bio, &a.CreatedAt, &a.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAuthor inserts an author.
func (s *Store) CreateAuthor(ctx context.Context, name string, bio *string) (*api.Author, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO authors (name, bio) VALUES ($1, $2)
		RETURNING `+authorColumns,
		name, bio,
	)
	a, err := scanAuthor(row)
	if err != nil {
		return nil, classify(storage.EntityAuthor, "inserting author", err)
	}
	return a, nil
}

// ListAuthors returns all authors ordered by name.
func (s *Store) ListAuthors(ctx context.Context) ([]api.Author, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+authorColumns+` FROM authors ORDER BY name ASC`)
	if err != nil {
		return nil, classify(storage.EntityAuthor, "listing authors", err)
	}
	defer rows.Close()

	authors := make([]api.Author, 0)
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, classify(storage.EntityAuthor, "scanning author", err)
		}
		authors = append(authors, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(storage.EntityAuthor, "iterating authors", err)
	}
	return authors, nil
}

// GetAuthor returns an author with its book count.
func (s *Store) GetAuthor(ctx context.Context, id string) (*api.Author, error) {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT a.id, a.name, a.bio, a.created_at, a.updated_at,
		       (SELECT count(*) FROM books b WHERE b.author_id = a.id)
		FROM authors a
		WHERE a.id = $1`, id)
	a, err := scanAuthor(row, &count)
	if err != nil {
		return nil, classify(storage.EntityAuthor, "querying author", err)
	}
	a.BookCount = &count
	return a, nil
}

// GetAuthorByName looks up an author by exact name.
func (s *Store) GetAuthorByName(ctx context.Context, name string) (*api.Author, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+authorColumns+` FROM authors WHERE name = $1`, name)
	a, err := scanAuthor(row)
	if err != nil {
		return nil, classify(storage.EntityAuthor, "querying author", err)
	}
	return a, nil
}

// UpdateAuthor applies a partial update in a single statement.
func (s *Store) UpdateAuthor(ctx context.Context, id string, p api.AuthorPatch) (*api.Author, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	if p.Name != nil {
		args = append(args, *p.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	switch {
	case p.ClearBio:
		sets = append(sets, "bio = NULL")
	case p.Bio != nil:
		args = append(args, *p.Bio)
		sets = append(sets, fmt.Sprintf("bio = $%d", len(args)))
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE authors SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+authorColumns,
		args...,
	)
	a, err := scanAuthor(row)
	if err != nil {
		return nil, classify(storage.EntityAuthor, "updating author", err)
	}
	return a, nil
}

// DeleteAuthor removes an author. Referencing books make the delete fail
// with a foreign-key violation.
func (s *Store) DeleteAuthor(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return classify(storage.EntityAuthor, "deleting author", err)
	}
	if result.RowsAffected() == 0 {
		return storage.NotFound(storage.EntityAuthor)
	}
	return nil
}

// CreateBook inserts a book.
func (s *Store) CreateBook(ctx context.Context, b api.Book) (*api.Book, error) {
	var out api.Book
	err := s.pool.QueryRow(ctx, `
		INSERT INTO books (title, isbn, author_id) VALUES ($1, $2, $3)
		RETURNING id, title, isbn, author_id, created_at, updated_at`,
		b.Title, b.ISBN, b.AuthorID,
	).Scan(&out.ID, &out.Title, &out.ISBN, &out.AuthorID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, classify(storage.EntityBook, "inserting book", err)
	}
	return &out, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// classify converts a pgx error into a *storage.Error.
func classify(entity, op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.NotFound(entity)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		debug.Log(context.Background(), debug.Storage, "postgres error",
			"op", op, "sqlstate", pgErr.Code, "constraint", pgErr.ConstraintName)
		cause := fmt.Errorf("%s: %w", op, err)
		switch pgErr.Code {
		case codeUniqueViolation:
			return storage.Unique(entity, cause, violatedFields(pgErr)...)
		case codeForeignKeyViolation:
			return storage.ForeignKey(entity, cause, violatedFields(pgErr)...)
		case codeInvalidText:
			// A malformed uuid cannot address any row.
			return storage.NotFound(entity)
		}
	}

	return storage.Other(entity, fmt.Errorf("%s: %w", op, err))
}

// violatedFields resolves the columns behind a constraint violation.
func violatedFields(pgErr *pgconn.PgError) []string {
	if fields, ok := constraintFields[pgErr.ConstraintName]; ok {
		return fields
	}
	if pgErr.ColumnName != "" {
		return []string{pgErr.ColumnName}
	}
	return nil
}
