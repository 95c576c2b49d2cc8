// Package http serves the ledger as a JSON API.
//
// Responses are assembled with JSONResponseBuilder so status codes, headers
// and error bodies stay consistent across handlers.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"spendmate/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a builder with a default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the response. A nil payload writes no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal","message":"Something went wrong."}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("malformed request body")

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind services.Kind) int {
	switch kind {
	case services.KindNone:
		return http.StatusOK
	case services.KindValidation:
		return http.StatusUnprocessableEntity
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindWrite:
		return http.StatusBadGateway
	case services.KindSubscription, services.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the response for err. Validation failures carry the
// underlying message so clients can point at the offending field.
func ErrorResponse(err error) *JSONResponseBuilder {
	if errors.Is(err, errBadRequest) {
		return NewJSONResponse().
			Status(http.StatusBadRequest).
			Data(errorBody{Error: "bad_request", Message: "The request body could not be read.", Detail: err.Error()})
	}
	kind := services.ErrorKind(err)
	body := errorBody{Error: kind.String(), Message: kind.Describe()}
	if kind == services.KindValidation || kind == services.KindNotFound {
		body.Detail = err.Error()
	}
	return NewJSONResponse().Status(StatusFor(kind)).Data(body)
}
