// Package validate provides the request validation stage.
//
// A [Schema] declares which parts of a request (JSON body, path parameters,
// query string) a route accepts, each as a factory for a struct carrying
// go-playground/validator tags. The stage decodes only the declared parts,
// normalizes them, validates every rule, and either stores the parsed values
// in the request context or fails with a single VALIDATION_ERROR listing
// every violated field.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rhuss/bookstore/pkg/api"
)

// MaxBodyBytes bounds the JSON body read by the stage.
const MaxBodyBytes = 1 << 20

// Part names, used as the first segment of a detail's field path.
const (
	PartBody   = "body"
	PartParams = "params"
	PartQuery  = "query"
)

// Schema declares the request parts a route validates. Each non-nil factory
// returns a pointer to a fresh tagged struct.
type Schema struct {
	Body   func() any
	Params func() any
	Query  func() any
}

// Messager supplies field-specific messages keyed by "<field>.<tag>", with
// the field written as its JSON path inside the part (e.g. "email.required").
type Messager interface {
	ValidationMessages() map[string]string
}

// Refiner expresses cross-field rules that struct tags cannot. A non-nil
// detail is reported after the tag rules; an empty Field means the whole part.
type Refiner interface {
	Refine() *api.Detail
}

// Validator builds validation stages over one shared validator instance.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that reports fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

type bodyKey struct{}
type paramsKey struct{}
type queryKey struct{}

// Request returns a pipeline stage enforcing s.
func (val *Validator) Request(s Schema) func(*http.Request) (*http.Request, error) {
	return func(r *http.Request) (*http.Request, error) {
		var details []api.Detail
		ctx := r.Context()

		if s.Params != nil {
			dst := s.Params()
			bindStrings(dst, r.PathValue)
			ds, err := val.check(PartParams, dst)
			if err != nil {
				return nil, err
			}
			details = append(details, ds...)
			ctx = context.WithValue(ctx, paramsKey{}, dst)
		}

		if s.Query != nil {
			dst := s.Query()
			q := r.URL.Query()
			bindStrings(dst, q.Get)
			ds, err := val.check(PartQuery, dst)
			if err != nil {
				return nil, err
			}
			details = append(details, ds...)
			ctx = context.WithValue(ctx, queryKey{}, dst)
		}

		if s.Body != nil {
			dst := s.Body()
			msg, typeErrs := decodeBody(r, dst)
			if msg != "" {
				details = append(details, api.Detail{Field: PartBody, Message: msg})
			} else {
				ds, err := val.check(PartBody, dst)
				if err != nil {
					return nil, err
				}
				details = append(details, mergeTypeErrors(dst, typeErrs, ds)...)
			}
			ctx = context.WithValue(ctx, bodyKey{}, dst)
		}

		if len(details) > 0 {
			return nil, api.NewValidationError(details)
		}
		return r.WithContext(ctx), nil
	}
}

// check normalizes and validates one part. Failures of the validation
// machinery itself are returned as errors, rule violations as details.
func (val *Validator) check(part string, dst any) ([]api.Detail, error) {
	normalize(dst)

	var details []api.Detail
	if err := val.v.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		var custom map[string]string
		if m, ok := dst.(Messager); ok {
			custom = m.ValidationMessages()
		}
		for _, fe := range fieldErrs {
			field := fieldPath(fe.Namespace())
			details = append(details, api.Detail{
				Field:   part + "." + field,
				Message: message(custom, field, fe),
			})
		}
	}

	if rf, ok := dst.(Refiner); ok {
		if d := rf.Refine(); d != nil {
			field := part
			if d.Field != "" {
				field += "." + d.Field
			}
			details = append(details, api.Detail{Field: field, Message: d.Message})
		}
	}
	return details, nil
}

// decodeBody reads a JSON object into dst. A body that is not a JSON object
// yields a single client-facing message. Otherwise each key is decoded into
// its field on its own; a value of the wrong JSON type leaves the field zero
// and is returned keyed by the field's JSON name. An empty body decodes as {}.
func decodeBody(r *http.Request, dst any) (string, map[string]string) {
	if r.Body == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return "Request body could not be read", nil
	}
	if len(data) > MaxBodyBytes {
		return fmt.Sprintf("Request body exceeds %d bytes", MaxBodyBytes), nil
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "Request body must be a valid JSON object", nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		if err := json.Unmarshal(data, dst); err != nil {
			return "Request body must be a valid JSON object", nil
		}
		return "", nil
	}
	v = v.Elem()
	t := v.Type()

	var typeErrs map[string]string
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := jsonName(sf)
		if !sf.IsExported() || name == "" {
			continue
		}
		value, ok := raw[name]
		if !ok {
			continue
		}
		f := v.Field(i)
		if err := json.Unmarshal(value, f.Addr().Interface()); err != nil {
			f.Set(reflect.Zero(f.Type()))
			if typeErrs == nil {
				typeErrs = make(map[string]string)
			}
			typeErrs[name] = typeMessage(err)
		}
	}
	return "", typeErrs
}

// typeMessage describes a value that does not fit its field.
func typeMessage(err error) string {
	var te *json.UnmarshalTypeError
	if !errors.As(err, &te) {
		return "Invalid value"
	}
	got, _, _ := strings.Cut(te.Value, " ")
	if got == "bool" {
		got = "boolean"
	}
	return fmt.Sprintf("Expected %s, received %s", jsonKind(te.Type), got)
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// mergeTypeErrors combines wrong-type fields with the rule violations of the
// remaining fields, in struct field order. A field with a type error reports
// only that; details not tied to a named field keep their place at the end.
func mergeTypeErrors(dst any, typeErrs map[string]string, ds []api.Detail) []api.Detail {
	if len(typeErrs) == 0 {
		return ds
	}
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	byField := make(map[string][]api.Detail)
	var rest []api.Detail
	for _, d := range ds {
		head, _, _ := strings.Cut(strings.TrimPrefix(d.Field, PartBody+"."), ".")
		if d.Field == PartBody || head == "" {
			rest = append(rest, d)
			continue
		}
		byField[head] = append(byField[head], d)
	}

	var out []api.Detail
	for i := 0; i < t.NumField(); i++ {
		name := jsonName(t.Field(i))
		if name == "" {
			continue
		}
		if msg, ok := typeErrs[name]; ok {
			out = append(out, api.Detail{Field: PartBody + "." + name, Message: msg})
		} else {
			out = append(out, byField[name]...)
		}
		delete(byField, name)
	}
	for i := range ds {
		head, _, _ := strings.Cut(strings.TrimPrefix(ds[i].Field, PartBody+"."), ".")
		if _, ok := byField[head]; ok {
			out = append(out, ds[i])
		}
	}
	return append(out, rest...)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// message picks the custom message for field and tag, falling back to a
// generic one derived from the rule.
func message(custom map[string]string, field string, fe validator.FieldError) string {
	if msg, ok := custom[field+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q rule", fe.Field(), fe.Tag())
	}
}

// Body returns the validated body stored by the stage, or nil.
func Body[T any](ctx context.Context) *T {
	v, _ := ctx.Value(bodyKey{}).(*T)
	return v
}

// Params returns the validated path parameters stored by the stage, or nil.
func Params[T any](ctx context.Context) *T {
	v, _ := ctx.Value(paramsKey{}).(*T)
	return v
}

// Query returns the validated query parameters stored by the stage, or nil.
func Query[T any](ctx context.Context) *T {
	v, _ := ctx.Value(queryKey{}).(*T)
	return v
}
