package http

import (
	"github.com/rhuss/bookstore/pkg/api"
	"github.com/rhuss/bookstore/pkg/validate"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8" normalize:"-"`
}

func (loginBody) ValidationMessages() map[string]string {
	return map[string]string{
		"email.required":    "Email is required",
		"email.email":       "Invalid email address",
		"password.required": "Password is required",
		"password.min":      "Password is required",
	}
}

type createUserBody struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8" normalize:"-"`
}

func (createUserBody) ValidationMessages() map[string]string {
	return map[string]string{
		"name.required":     "Name is required",
		"name.min":          "Name must be at least 2 characters long",
		"email.required":    "Email is required",
		"email.email":       "Invalid email address",
		"password.required": "Password is required",
		"password.min":      "Password must be at least 8 characters long",
	}
}

type lookupQuery struct {
	Q string `json:"q" validate:"required,min=1"`
}

func (lookupQuery) ValidationMessages() map[string]string {
	return map[string]string{
		"q.required": "Query term is required",
		"q.min":      "Please enter the search term",
	}
}

type authorParams struct {
	AuthorID string `json:"authorId" validate:"uuid"`
}

func (authorParams) ValidationMessages() map[string]string {
	return map[string]string{"authorId.uuid": "Invalid Author ID format"}
}

type createAuthorBody struct {
	Name string  `json:"name" validate:"required,min=2"`
	Bio  *string `json:"bio"`
}

func (createAuthorBody) ValidationMessages() map[string]string {
	return map[string]string{
		"name.required": "Author name is required",
		"name.min":      "Author name must be at least 2 characters",
	}
}

type updateAuthorBody struct {
	Name *string                 `json:"name" validate:"omitempty,min=2"`
	Bio  validate.NullableString `json:"bio"`
}

func (updateAuthorBody) ValidationMessages() map[string]string {
	return map[string]string{"name.min": "Author name must be at least 2 characters"}
}

func (b updateAuthorBody) Refine() *api.Detail {
	if b.Name == nil && !b.Bio.Set {
		return &api.Detail{Message: "At least one field (name or bio) must be provided for update"}
	}
	return nil
}

// patch converts the body into a store patch. An explicit null bio clears it.
func (b updateAuthorBody) patch() api.AuthorPatch {
	p := api.AuthorPatch{Name: b.Name}
	if b.Bio.Set {
		if b.Bio.Valid {
			p.Bio = b.Bio.Ptr()
		} else {
			p.ClearBio = true
		}
	}
	return p
}

type createBookBody struct {
	Title    string  `json:"title" validate:"required"`
	ISBN     *string `json:"isbn" validate:"omitempty,min=10,max=17"`
	AuthorID string  `json:"author_id" validate:"required,uuid"`
}

func (createBookBody) ValidationMessages() map[string]string {
	return map[string]string{
		"title.required":     "Title is required",
		"author_id.required": "Author ID is required",
		"author_id.uuid":     "Invalid Author ID format",
	}
}

var (
	loginSchema        = validate.Schema{Body: func() any { return &loginBody{} }}
	createUserSchema   = validate.Schema{Body: func() any { return &createUserBody{} }}
	lookupSchema       = validate.Schema{Query: func() any { return &lookupQuery{} }}
	authorIDSchema     = validate.Schema{Params: func() any { return &authorParams{} }}
	createAuthorSchema = validate.Schema{Body: func() any { return &createAuthorBody{} }}
	updateAuthorSchema = validate.Schema{
		Params: func() any { return &authorParams{} },
		Body:   func() any { return &updateAuthorBody{} },
	}
	createBookSchema = validate.Schema{Body: func() any { return &createBookBody{} }}
)
