package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var ErrServerUnreachable = errors.New("server unreachable")

// UnreachableError is returned when no HTTP response was received at all.
type UnreachableError struct {
	BaseURL string
	Err     error
}

func (e *UnreachableError) Error() string {
	return "unable to connect to server, check that the backend is running at " + e.BaseURL
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrServerUnreachable
}

// APIError is a non-2xx response. Message is picked from Body; Data is the
// raw JSON object when the body was one.
type APIError struct {
	Status  int
	Body    ErrorBody
	Data    map[string]any
	Message string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	}
	return e.Message
}

// FieldErrors returns the first error for each field when the body carried
// per-field errors.
func (e *APIError) FieldErrors() map[string]string {
	fields, ok := e.Body.(FieldErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(fields.Fields))
	for name, messages := range fields.Fields {
		if len(messages) > 0 {
			out[name] = messages[0]
		}
	}
	return out
}

// Detail returns the "detail" field when the body had one.
func (e *APIError) Detail() string {
	if d, ok := e.Body.(DetailError); ok {
		return d.Detail
	}
	return ""
}

func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// ErrorBody is the decoded shape of an error response.
type ErrorBody interface {
	Describe() string
	isErrorBody()
}

type DetailError struct {
	Detail string
}

type MessageError struct {
	Text string
}

type NonFieldErrors struct {
	Errors []string
}

type FieldErrors struct {
	Fields map[string][]string
}

type PlainText struct {
	Text string
}

type EmptyBody struct {
	Status int
}

func (DetailError) isErrorBody()    {}
func (MessageError) isErrorBody()   {}
func (NonFieldErrors) isErrorBody() {}
func (FieldErrors) isErrorBody()    {}
func (PlainText) isErrorBody()      {}
func (EmptyBody) isErrorBody()      {}

func (b DetailError) Describe() string  { return b.Detail }
func (b MessageError) Describe() string { return b.Text }
func (b PlainText) Describe() string    { return b.Text }

func (b EmptyBody) Describe() string {
	return fmt.Sprintf("HTTP error! status: %d", b.Status)
}

func (b NonFieldErrors) Describe() string {
	if len(b.Errors) == 0 {
		return ""
	}
	return b.Errors[0]
}

// priorityFields are reported before any other field, in this order.
var priorityFields = []string{"email", "password", "full_name"}

func (b FieldErrors) Names() []string {
	names := make([]string, 0, len(b.Fields))
	seen := make(map[string]bool, len(b.Fields))
	for _, name := range priorityFields {
		if len(b.Fields[name]) > 0 {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(b.Fields))
	for name, messages := range b.Fields {
		if !seen[name] && len(messages) > 0 {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func (b FieldErrors) Describe() string {
	names := b.Names()
	if len(names) == 0 {
		return ""
	}
	return FieldLabel(names[0]) + ": " + b.Fields[names[0]][0]
}

// FieldLabel turns a field name into its display label: full_name becomes
// "Full name".
func FieldLabel(name string) string {
	label := strings.ReplaceAll(name, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func newAPIError(status int, contentType string, raw []byte) *APIError {
	body, data := decodeErrorBody(status, contentType, raw)
	message := body.Describe()
	if strings.TrimSpace(message) == "" {
		message = EmptyBody{Status: status}.Describe()
	}
	return &APIError{
		Status:  status,
		Body:    body,
		Data:    data,
		Message: message,
	}
}

// decodeErrorBody classifies an error response once. Precedence: detail,
// message, non_field_errors, per-field errors, raw text, generic status.
func decodeErrorBody(status int, contentType string, raw []byte) (ErrorBody, map[string]any) {
	if !isJSON(contentType) {
		if text := strings.TrimSpace(string(raw)); text != "" {
			return PlainText{Text: text}, nil
		}
		return EmptyBody{Status: status}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return EmptyBody{Status: status}, nil
	}

	if text := firstString(data["detail"]); text != "" {
		return DetailError{Detail: text}, data
	}
	if text := firstString(data["message"]); text != "" {
		return MessageError{Text: text}, data
	}
	if list := stringList(data["non_field_errors"]); len(list) > 0 {
		return NonFieldErrors{Errors: list}, data
	}

	fields := make(map[string][]string)
	for name, value := range data {
		if list := stringList(value); len(list) > 0 {
			fields[name] = list
		}
	}
	if len(fields) > 0 {
		return FieldErrors{Fields: fields}, data
	}
	return EmptyBody{Status: status}, data
}

func stringValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if !value {
			return ""
		}
	}
	return fmt.Sprint(v)
}

// firstString reads a scalar, or the first entry of a list.
func firstString(v any) string {
	if list, ok := v.([]any); ok {
		if items := stringList(list); len(items) > 0 {
			return items[0]
		}
		return ""
	}
	return stringValue(v)
}

func stringList(v any) []string {
	switch value := v.(type) {
	case string:
		if value == "" {
			return nil
		}
		return []string{value}
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// UserMessage is the text shown to the learner for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return unreachable.Error()
	}
	return err.Error()
}

// IsUnauthorized reports a rejected or missing token.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}
