// Package httputil binds requests onto the types structs and writes the JSON
// envelopes every handler answers with.
package httputil

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sentryai/sentry/internal/apperr"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Parse fills v, a pointer to a request struct, from the request:
//   - `path:"name"` fields from chi URL parameters
//   - `form:"name"` fields from the query string
//   - everything else from a JSON body, when one is sent
//
// Values that do not fit their field, and malformed JSON, are validation
// errors naming the offending parameter.
func Parse(r *http.Request, v any) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return nil
	}
	val = val.Elem()
	typ := val.Type()
	query := r.URL.Query()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		tag := typ.Field(i).Tag
		if name := tag.Get("path"); name != "" {
			if err := bind(field, name, chi.URLParam(r, name)); err != nil {
				return err
			}
		}
		if name := tag.Get("form"); name != "" {
			if err := bind(field, name, query.Get(name)); err != nil {
				return err
			}
		}
	}

	if r.Body == nil || r.ContentLength <= 0 {
		return nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request body")
	}
	return nil
}

// bind converts raw into field's type. An empty raw value leaves the field
// untouched.
func bind(field reflect.Value, name, raw string) error {
	if raw == "" {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return apperr.Validation("%s must be an integer", name)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Validation("%s must be true or false", name)
		}
		field.SetBool(b)
	}
	return nil
}

// OkJSON writes v with 200 OK.
func OkJSON(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

// Created writes v with 201 Created.
func Created(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusCreated, v)
}

// Accepted writes v with 202 Accepted.
func Accepted(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusAccepted, v)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err with the status of its apperr kind. Unclassified errors
// become 500s with a generic message.
func Error(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	WriteJSON(w, status, ErrorResponse{Code: status, Message: apperr.PublicMessage(err)})
}

// Unauthorized writes a 401 with message, or "unauthorized" when empty.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "unauthorized"
	}
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Code: http.StatusUnauthorized, Message: message})
}
