package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// FieldError is one entry of the backend's field-keyed validation map.
// Field is empty when the backend sent a plain list of messages.
type FieldError struct {
	Field    string   `json:"field,omitempty"`
	Messages []string `json:"messages"`
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
	Errors  []FieldError
	Body    []byte
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if msg := e.Display(); msg != "" {
		return fmt.Sprintf("backend status %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("backend status %d", e.Status)
}

func (e *APIError) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}

// Display picks the best single message: message, then the first entry of errors.
func (e *APIError) Display() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	for _, fe := range e.Errors {
		for _, m := range fe.Messages {
			if m = strings.TrimSpace(m); m != "" {
				return m
			}
		}
	}
	return ""
}

// Flatten joins every field error into one string, "field: m1, m2; other: m3",
// keeping the order the backend sent them in.
func (e *APIError) Flatten() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs := strings.Join(fe.Messages, ", ")
		if msgs == "" {
			continue
		}
		if fe.Field == "" {
			parts = append(parts, msgs)
			continue
		}
		parts = append(parts, fe.Field+": "+msgs)
	}
	return strings.Join(parts, "; ")
}

// FieldMap returns the field errors keyed by field for error details.
func (e *APIError) FieldMap() map[string][]string {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	out := make(map[string][]string, len(e.Errors))
	for _, fe := range e.Errors {
		key := fe.Field
		if key == "" {
			key = "_"
		}
		out[key] = append(out[key], fe.Messages...)
	}
	return out
}

func (e *APIError) typed() *pkgerrors.Error {
	msg := e.Display()
	if msg == "" {
		msg = defaultFailureMessage
	}
	typed := pkgerrors.Wrap(pkgerrors.CodeForStatus(e.Status), e, msg)
	if fields := e.FieldMap(); fields != nil {
		typed = typed.WithDetails(map[string]any{"fields": fields})
	}
	return typed
}

// AsAPIError returns the backend response error inside err, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// DisplayMessage extracts a user-facing message from err or returns fallback.
func DisplayMessage(err error, fallback string) string {
	if apiErr, ok := AsAPIError(err); ok {
		if msg := apiErr.Display(); msg != "" {
			return msg
		}
	}
	return fallback
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: body}

	var envelope struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apiErr
	}
	apiErr.Message = firstString(envelope.Message)
	if apiErr.Message == "" {
		apiErr.Message = firstString(envelope.Error)
	}
	apiErr.Errors = parseFieldErrors(envelope.Errors)
	return apiErr
}

// parseFieldErrors accepts an object of field -> message(s), a list of
// messages or a single string. Object key order is preserved.
func parseFieldErrors(raw json.RawMessage) []FieldError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return nil
		}
		var out []FieldError
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return out
			}
			field, _ := tok.(string)
			var value json.RawMessage
			if err := dec.Decode(&value); err != nil {
				return out
			}
			if msgs := messagesFrom(value); len(msgs) > 0 {
				out = append(out, FieldError{Field: field, Messages: msgs})
			}
		}
		return out
	case '[', '"':
		if msgs := messagesFrom(trimmed); len(msgs) > 0 {
			return []FieldError{{Messages: msgs}}
		}
	}
	return nil
}

func messagesFrom(raw json.RawMessage) []string {
	if s := firstString(raw); s != "" {
		return []string{s}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := firstString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
