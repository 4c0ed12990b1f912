package api

import "time"

// Role is the authorization role carried by a user and their tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a registered account. PasswordHash never leaves the process.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Author is a catalog author. Names are unique.
type Author struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bio       *string   `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// BookCount is populated only when a single author is fetched.
	BookCount *int `json:"book_count,omitempty"`
}

// AuthorPatch carries a partial author update. Nil fields are left unchanged;
// ClearBio sets the bio to null.
type AuthorPatch struct {
	Name     *string
	Bio      *string
	ClearBio bool
}

// Empty reports whether the patch changes nothing.
func (p AuthorPatch) Empty() bool {
	return p.Name == nil && p.Bio == nil && !p.ClearBio
}

// Book references its author; an author with books cannot be deleted.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ISBN      *string   `json:"isbn"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookRecord is a normalized result from the external book-metadata lookup.
// Every key is always present; optional values the source lacks are null.
type BookRecord struct {
	GoogleBooksID string   `json:"googleBooksId"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     *string  `json:"publisher"`
	PublishedDate *string  `json:"publishedDate"`
	Description   *string  `json:"description"`
	ISBN10        *string  `json:"isbn10"`
	ISBN13        *string  `json:"isbn13"`
	PageCount     *int     `json:"pageCount"`
	Language      *string  `json:"language"`
	CoverImageURL *string  `json:"coverImageUrl"`
}

// SuccessResponse is the envelope for every 2xx response with a body.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorBody is the inner error object of an ErrorResponse.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorResponse is the body written for every failure.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
	Details any       `json:"details,omitempty"`
}

// Trace is the diagnostic detail attached to non-operational errors outside
// hardened mode.
type Trace struct {
	Error string `json:"error"`
	Stack string `json:"stack,omitempty"`
}

// NewSuccess builds a success envelope.
func NewSuccess(message string, data any) SuccessResponse {
	return SuccessResponse{Success: true, Message: message, Data: data}
}
