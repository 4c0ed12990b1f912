package storage

import (
	"context"

	"github.com/rhuss/bookstore/pkg/api"
)

// Entity names used in errors.
const (
	EntityUser   = "user"
	EntityAuthor = "author"
	EntityBook   = "book"
)

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts u, assigning its ID and timestamps. A taken email
	// fails with KindUniqueViolation on "email".
	CreateUser(ctx context.Context, u api.User) (*api.User, error)

	// GetUserByEmail fails with KindNotFound when no account matches.
	GetUserByEmail(ctx context.Context, email string) (*api.User, error)
}

// AuthorStore persists authors.
type AuthorStore interface {
	// CreateAuthor fails with KindUniqueViolation on "name".
	CreateAuthor(ctx context.Context, name string, bio *string) (*api.Author, error)

	// ListAuthors returns every author ordered by name.
	ListAuthors(ctx context.Context) ([]api.Author, error)

	// GetAuthor returns the author with BookCount populated.
	GetAuthor(ctx context.Context, id string) (*api.Author, error)

	// GetAuthorByName returns the author with exactly this name.
	GetAuthorByName(ctx context.Context, name string) (*api.Author, error)

	// UpdateAuthor applies p and bumps UpdatedAt.
	UpdateAuthor(ctx context.Context, id string, p api.AuthorPatch) (*api.Author, error)

	// DeleteAuthor fails with KindForeignKeyViolation while books reference
	// the author.
	DeleteAuthor(ctx context.Context, id string) error
}

// BookStore persists books.
type BookStore interface {
	// CreateBook fails with KindForeignKeyViolation on "author_id" when the
	// author does not exist and KindUniqueViolation on "isbn".
	CreateBook(ctx context.Context, b api.Book) (*api.Book, error)
}

// Store is the full persistence contract used by the HTTP layer.
type Store interface {
	UserStore
	AuthorStore
	BookStore

	HealthCheck(ctx context.Context) error
	Close() error
}
