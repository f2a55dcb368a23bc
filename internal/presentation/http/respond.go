package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success    bool     `json:"success"`
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	ErrorCode  string   `json:"errorCode"`
	Errors     []string `json:"errors"`
}

type page[T any] struct {
	Items []T         `json:"items"`
	Meta  paging.Meta `json:"meta"`
}

func pageOf[T, U any](r paging.Result[T], fn func(T) U) page[U] {
	m := paging.Map(r, fn)
	return page[U]{Items: m.Items, Meta: m.Meta}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, StatusCode: status, Message: message, Data: data})
}

func writeOK(w http.ResponseWriter, data any) {
	writeData(w, http.StatusOK, "success", data)
}

func writeCreated(w http.ResponseWriter, data any) {
	writeData(w, http.StatusCreated, "created", data)
}

// statusOf maps the error kind to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalid), errors.Is(err, domain.ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	body := errorEnvelope{
		StatusCode: status,
		Message:    domain.MessageOf(err),
		ErrorCode:  domain.CodeOf(err),
		Errors:     []string{},
	}
	var verrs validationErrors
	if errors.As(err, &verrs) {
		body.Errors = verrs.fields
	}
	if status == http.StatusInternalServerError {
		// repository and unexpected failures stay out of the response
		body.Message = "internal server error"
		body.ErrorCode = application.StatusOf(err)
	}
	writeJSON(w, status, body)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationErrors carries one message per failing field.
type validationErrors struct {
	error
	fields []string
}

func (v validationErrors) Unwrap() error { return v.error }

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func validateStruct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return application.NewValidation(err.Error())
	}
	fields := make([]string, 0, len(fes))
	for _, fe := range fes {
		fields = append(fields, describe(fe))
	}
	return validationErrors{error: application.NewValidation("validation failed"), fields: fields}
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return application.NewValidation("malformed JSON body: " + err.Error())
	}
	return validateStruct(dst)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryInt64Ptr(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, application.NewValidation(key + " must be an integer")
	}
	return &n, nil
}

func queryIntPtr(r *http.Request, key string) (*int, error) {
	n, err := queryInt64Ptr(r, key)
	if err != nil || n == nil {
		return nil, err
	}
	v := int(*n)
	return &v, nil
}

func queryBoolPtr(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, application.NewValidation(key + " must be true or false")
	}
	return &b, nil
}

func queryTimePtr(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, application.NewValidation(key + " must be an RFC3339 timestamp or YYYY-MM-DD")
}

func listQuery(r *http.Request) application.ListQuery {
	q := r.URL.Query()
	return application.ListQuery{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
		Sort:  q.Get("sortBy"),
		Order: q.Get("sortOrder"),
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
