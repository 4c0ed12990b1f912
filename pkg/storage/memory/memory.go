// Package memory provides an in-memory implementation of storage.Store for
// tests and lightweight deployments. Data is lost when the process restarts.
// Uniqueness and foreign-key rules are enforced under a single mutex, with
// the same error kinds the postgres adapter reports.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/storage"
)

// Store is an in-memory storage.Store.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*api.User   // id -> user
	emails  map[string]string      // email -> user id
	authors map[string]*api.Author // id -> author
	names   map[string]string      // author name -> author id
	books   map[string]*api.Book   // id -> book
	isbns   map[string]string      // isbn -> book id

	now func() time.Time
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:   make(map[string]*api.User),
		emails:  make(map[string]string),
		authors: make(map[string]*api.Author),
		names:   make(map[string]string),
		books:   make(map[string]*api.Book),
		isbns:   make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser inserts a user with a fresh id.
func (s *Store) CreateUser(_ context.Context, u api.User) (*api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[u.Email]; taken {
		return nil, storage.Unique(storage.EntityUser, nil, "email")
	}

	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Role == "" {
		u.Role = api.RoleUser
	}

	s.users[u.ID] = &u
	s.emails[u.Email] = u.ID

	out := u
	return &out, nil
}

// GetUserByEmail looks up a user by exact email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, storage.NotFound(storage.EntityUser)
	}
	out := *s.users[id]
	return &out, nil
}

// CreateAuthor inserts an author with a fresh id.
func (s *Store) CreateAuthor(_ context.Context, name string, bio *string) (*api.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.names[name]; taken {
		return nil, storage.Unique(storage.EntityAuthor, nil, "name")
	}

	now := s.now()
	a := &api.Author{
		ID:        uuid.NewString(),
		Name:      name,
		Bio:       copyString(bio),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.authors[a.ID] = a
	s.names[name] = a.ID

	return copyAuthor(a), nil
}

// ListAuthors returns all authors ordered by name.
func (s *Store) ListAuthors(_ context.Context) ([]api.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.Author, 0, len(s.authors))
	for _, a := range s.authors {
		out = append(out, *copyAuthor(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// GetAuthor returns an author and the number of books referencing it.
func (s *Store) GetAuthor(_ context.Context, id string) (*api.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.authors[id]
	if !ok {
		return nil, storage.NotFound(storage.EntityAuthor)
	}
	out := copyAuthor(a)
	count := s.bookCount(id)
	out.BookCount = &count
	return out, nil
}

// GetAuthorByName looks up an author by exact name.
func (s *Store) GetAuthorByName(_ context.Context, name string) (*api.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[name]
	if !ok {
		return nil, storage.NotFound(storage.EntityAuthor)
	}
	return copyAuthor(s.authors[id]), nil
}

// UpdateAuthor applies a partial update.
func (s *Store) UpdateAuthor(_ context.Context, id string, p api.AuthorPatch) (*api.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.authors[id]
	if !ok {
		return nil, storage.NotFound(storage.EntityAuthor)
	}

	if p.Name != nil && *p.Name != a.Name {
		if _, taken := s.names[*p.Name]; taken {
			return nil, storage.Unique(storage.EntityAuthor, nil, "name")
		}
		delete(s.names, a.Name)
		a.Name = *p.Name
		s.names[a.Name] = a.ID
	}
	switch {
	case p.ClearBio:
		a.Bio = nil
	case p.Bio != nil:
		a.Bio = copyString(p.Bio)
	}
	a.UpdatedAt = s.now()

	return copyAuthor(a), nil
}

// DeleteAuthor removes an author that no book references.
func (s *Store) DeleteAuthor(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.authors[id]
	if !ok {
		return storage.NotFound(storage.EntityAuthor)
	}
	if s.bookCount(id) > 0 {
		return storage.ForeignKey(storage.EntityAuthor, nil, "author_id")
	}

	delete(s.names, a.Name)
	delete(s.authors, id)
	return nil
}

// CreateBook inserts a book for an existing author.
func (s *Store) CreateBook(_ context.Context, b api.Book) (*api.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authors[b.AuthorID]; !ok {
		return nil, storage.ForeignKey(storage.EntityBook, nil, "author_id")
	}
	if b.ISBN != nil {
		if _, taken := s.isbns[*b.ISBN]; taken {
			return nil, storage.Unique(storage.EntityBook, nil, "isbn")
		}
	}

	now := s.now()
	b.ID = uuid.NewString()
	b.ISBN = copyString(b.ISBN)
	b.CreatedAt, b.UpdatedAt = now, now

	s.books[b.ID] = &b
	if b.ISBN != nil {
		s.isbns[*b.ISBN] = b.ID
	}

	out := b
	out.ISBN = copyString(b.ISBN)
	return &out, nil
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// bookCount must be called with the lock held.
func (s *Store) bookCount(authorID string) int {
	n := 0
	for _, b := range s.books {
		if b.AuthorID == authorID {
			n++
		}
	}
	return n
}

func copyAuthor(a *api.Author) *api.Author {
	out := *a
	out.Bio = copyString(a.Bio)
	out.BookCount = nil
	return &out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
