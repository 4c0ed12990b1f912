package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/auth"
	"github.com/rhuss/bookstore/pkg/debug"
	"github.com/rhuss/bookstore/pkg/storage"
	"github.com/rhuss/bookstore/pkg/transport"
	"github.com/rhuss/bookstore/pkg/validate"
)

type userView struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  api.Role `json:"role"`
}

type loginData struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (a *Adapter) handleLogin(w http.ResponseWriter, r *http.Request) error {
	in := validate.Body[loginBody](r.Context())

	user, err := a.deps.Store.GetUserByEmail(r.Context(), in.Email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		// Unknown email: burn the same verification cost as a wrong password.
		a.deps.Hasher.Verify(a.dummyHash, in.Password)
		return invalidCredentials()
	}
	if !a.deps.Hasher.Verify(user.PasswordHash, in.Password) {
		return invalidCredentials()
	}

	token, err := a.deps.Tokens.Issue(auth.Identity{
		Subject: user.ID,
		Email:   user.Email,
		Role:    user.Role,
	}, 0)
	if err != nil {
		return err
	}

	a.logger.Info("user logged in", slog.String("user_id", user.ID))
	transport.WriteSuccess(w, http.StatusOK, "Login successful", loginData{
		Token: token,
		User:  userView{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role},
	})
	return nil
}

func invalidCredentials() *api.APIError {
	return api.NewUnauthorizedError("Invalid credentials", api.CodeInvalidCredentials)
}

func (a *Adapter) handleCreateUser(w http.ResponseWriter, r *http.Request) error {
	in := validate.Body[createUserBody](r.Context())

	hash, err := a.deps.Hasher.Hash(in.Password)
	if err != nil {
		return err
	}

	user, err := a.deps.Store.CreateUser(r.Context(), api.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         api.RoleUser,
	})
	if err != nil {
		return err
	}

	a.logger.Info("user created", slog.String("user_id", user.ID))
	transport.WriteSuccess(w, http.StatusCreated, "User created successfully", map[string]any{"user": user})
	return nil
}

func (a *Adapter) handleLookup(w http.ResponseWriter, r *http.Request) error {
	q := validate.Query[lookupQuery](r.Context())

	results, err := a.deps.Books.Search(r.Context(), q.Q)
	if err != nil {
		return err
	}
	if results == nil {
		results = []api.BookRecord{}
	}

	a.logger.Info("book lookup", slog.String("query", q.Q), slog.Int("results", len(results)))
	transport.WriteSuccess(w, http.StatusOK, "Google Books lookup successful", results)
	return nil
}

func (a *Adapter) handleCreateAuthor(w http.ResponseWriter, r *http.Request) error {
	in := validate.Body[createAuthorBody](r.Context())

	_, err := a.deps.Store.GetAuthorByName(r.Context(), in.Name)
	switch {
	case err == nil:
		return api.NewConflictError(fmt.Sprintf("Author with name \"%s\" already exists", in.Name), api.CodeDuplicateEntry)
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	author, err := a.deps.Store.CreateAuthor(r.Context(), in.Name, in.Bio)
	if err != nil {
		return err
	}

	a.logger.Info("author created", slog.String("author_id", author.ID), slog.String("name", author.Name))
	transport.WriteSuccess(w, http.StatusCreated, "Author created successfully", map[string]any{"author": author})
	return nil
}

func (a *Adapter) handleListAuthors(w http.ResponseWriter, r *http.Request) error {
	authors, err := a.deps.Store.ListAuthors(r.Context())
	if err != nil {
		return err
	}
	transport.WriteSuccess(w, http.StatusOK, "Authors retrieved successfully", map[string]any{"authors": authors})
	return nil
}

func (a *Adapter) handleGetAuthor(w http.ResponseWriter, r *http.Request) error {
	p := validate.Params[authorParams](r.Context())

	author, err := a.deps.Store.GetAuthor(r.Context(), p.AuthorID)
	if err != nil {
		return err
	}
	transport.WriteSuccess(w, http.StatusOK, "Author retrieved successfully", map[string]any{"author": author})
	return nil
}

func (a *Adapter) handleUpdateAuthor(w http.ResponseWriter, r *http.Request) error {
	p := validate.Params[authorParams](r.Context())
	in := validate.Body[updateAuthorBody](r.Context())

	author, err := a.deps.Store.UpdateAuthor(r.Context(), p.AuthorID, in.patch())
	if err != nil {
		if errors.Is(err, storage.ErrConflict) && in.Name != nil {
			debug.Log(r.Context(), debug.Storage, "author rename collides", "author_id", p.AuthorID, "name", *in.Name)
			return api.NewConflictError(fmt.Sprintf("Author name \"%s\" already exists", *in.Name), api.CodeDuplicateEntry)
		}
		return err
	}

	a.logger.Info("author updated", slog.String("author_id", author.ID))
	transport.WriteSuccess(w, http.StatusOK, "Author updated successfully", map[string]any{"author": author})
	return nil
}

func (a *Adapter) handleDeleteAuthor(w http.ResponseWriter, r *http.Request) error {
	p := validate.Params[authorParams](r.Context())

	if err := a.deps.Store.DeleteAuthor(r.Context(), p.AuthorID); err != nil {
		if errors.Is(err, storage.ErrReference) {
			debug.Log(r.Context(), debug.Storage, "author still referenced by books", "author_id", p.AuthorID)
			return api.NewConflictError("Cannot delete author: Author is linked to existing books", api.CodeDeleteConflict)
		}
		return err
	}

	a.logger.Info("author deleted", slog.String("author_id", p.AuthorID))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *Adapter) handleCreateBook(w http.ResponseWriter, r *http.Request) error {
	in := validate.Body[createBookBody](r.Context())

	book, err := a.deps.Store.CreateBook(r.Context(), api.Book{
		Title:    in.Title,
		ISBN:     in.ISBN,
		AuthorID: in.AuthorID,
	})
	if err != nil {
		return err
	}

	a.logger.Info("book created", slog.String("book_id", book.ID), slog.String("author_id", book.AuthorID))
	transport.WriteSuccess(w, http.StatusCreated, "Book created successfully", map[string]any{"book": book})
	return nil
}

type heartbeat struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (a *Adapter) handleHeartbeat(w http.ResponseWriter, _ *http.Request) {
	transport.WriteJSON(w, http.StatusOK, heartbeat{
		Message:   "Server is running",
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleHealth reports readiness: the store must answer a ping.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if err := a.deps.Store.HealthCheck(r.Context()); err != nil {
		return api.NewInternal(http.StatusServiceUnavailable, "Storage unavailable", api.CodeServiceUnavailable, err)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
	return nil
}
