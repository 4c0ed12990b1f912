package validate

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// normalize trims surrounding whitespace from the top-level string fields
// of the struct dst points to and lower-cases fields validated as email.
// Fields tagged `normalize:"-"` are left as sent.
func normalize(dst any) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get("normalize") == "-" {
			continue
		}
		lower := hasRule(sf.Tag.Get("validate"), "email")

		f := v.Field(i)
		switch {
		case f.Kind() == reflect.String:
			f.SetString(clean(f.String(), lower))
		case f.Kind() == reflect.Pointer && !f.IsNil() && f.Elem().Kind() == reflect.String:
			f.Elem().SetString(clean(f.Elem().String(), lower))
		case f.Type() == reflect.TypeOf(NullableString{}):
			ns := f.Addr().Interface().(*NullableString)
			if ns.Valid {
				ns.Value = clean(ns.Value, lower)
			}
		}
	}
}

func clean(s string, lower bool) string {
	s = strings.TrimSpace(s)
	if lower {
		s = strings.ToLower(s)
	}
	return s
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if r == rule {
			return true
		}
	}
	return false
}

// bindStrings fills the string fields of the struct dst points to using
// lookup, keyed by each field's JSON name.
func bindStrings(dst any, lookup func(string) string) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Type.Kind() != reflect.String {
			continue
		}
		name := jsonName(sf)
		if name == "" {
			continue
		}
		v.Field(i).SetString(lookup(name))
	}
}

// jsonName returns the key a field is decoded from, or "" when it has none.
func jsonName(sf reflect.StructField) string {
	name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// NullableString is a JSON field that distinguishes absent, null and a value.
type NullableString struct {
	// Set is true when the key was present in the payload.
	Set bool
	// Valid is true when the value was not null.
	Valid bool
	Value string
}

// UnmarshalJSON records presence and nullness.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		n.Value = ""
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// Ptr returns the value, or nil when absent or null.
func (n NullableString) Ptr() *string {
	if !n.Valid {
		return nil
	}
	s := n.Value
	return &s
}
