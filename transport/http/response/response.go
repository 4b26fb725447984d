package response

import (
	"encoding/json"
	"errors"
	"hotel/shared/constant"
	"hotel/shared/failure"
	"hotel/shared/logger"
	"net/http"
)

const internalErrorMessage = "internal server error"

// Envelope is the body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

// Error documents the failure envelope for swagger.
type Error struct {
	Success bool      `json:"success" example:"false"`
	Error   ErrorBody `json:"error"`
}

// Message documents the message envelope for swagger.
type Message struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message"`
}

// Data documents the data envelope for swagger.
type Data[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data"`
}

// WithMessage sends a successful response with a simple text message.
func WithMessage(writer http.ResponseWriter, code int, message string) {
	response(writer, code, Envelope{Success: true, Message: message})
}

// WithJSON sends a successful response wrapping the payload in data.
func WithJSON(writer http.ResponseWriter, code int, payload any) {
	response(writer, code, Envelope{Success: true, Data: payload})
}

// WithError converts any error into the structured failure envelope. Errors that are not
// a *failure.Failure are reported as internal_error without leaking their text.
func WithError(writer http.ResponseWriter, err error) {
	var fail *failure.Failure
	if !errors.As(err, &fail) {
		logger.ErrorWithStack(err)

		fail = &failure.Failure{
			Code:    http.StatusInternalServerError,
			Kind:    failure.KindInternal,
			Message: internalErrorMessage,
		}
	}

	kind := fail.Kind
	if kind == "" {
		kind = failure.KindInternal
	}

	response(writer, fail.Code, Envelope{
		Success: false,
		Error: &ErrorBody{
			Kind:    kind,
			Message: fail.Message,
			Detail:  fail.Detail,
		},
	})
}

// WithRequestLimitExceeded sends a default response for when the request limit is exceeded.
func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithError(writer, failure.TooManyRequests(constant.ResponseErrorRequestLimitExceeded))
}

// WithPreparingShutdown sends a default response for when the server is preparing to shut down.
func WithPreparingShutdown(writer http.ResponseWriter) {
	response(writer, http.StatusServiceUnavailable, Envelope{
		Error: &ErrorBody{Kind: failure.KindInternal, Message: constant.ResponseErrorPrepareShutdown},
	})
}

// WithUnhealthy sends a default response for when the server is unhealthy.
func WithUnhealthy(writer http.ResponseWriter) {
	response(writer, http.StatusServiceUnavailable, Envelope{
		Error: &ErrorBody{Kind: failure.KindInternal, Message: constant.ResponseErrorUnhealthy},
	})
}

func response(writer http.ResponseWriter, code int, payload Envelope) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)

		code = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":{"kind":"internal_error","message":"internal server error"}}`)
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)

	if _, err = writer.Write(body); err != nil {
		logger.ErrorWithStack(err)
	}
}
