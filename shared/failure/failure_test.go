package failure_test

import (
	"errors"
	"fmt"
	"hotel/shared/failure"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		kind    string
		message string
	}{
		{"BadRequest", failure.BadRequest(errors.New("bad body")), http.StatusBadRequest, failure.KindValidation, "bad body"},
		{"BadRequestFromString", failure.BadRequestFromString("room_id is required"), http.StatusBadRequest, failure.KindValidation, "room_id is required"},
		{"Unauthorized", failure.Unauthorized("token expired"), http.StatusUnauthorized, failure.KindUnauthorized, "token expired"},
		{"InternalError", failure.InternalError(errors.New("db down")), http.StatusInternalServerError, failure.KindInternal, "db down"},
		{"Unimplemented", failure.Unimplemented("Refund"), http.StatusNotImplemented, failure.KindUnimplemented, "Refund"},
		{"NotFound", failure.NotFound("room not found"), http.StatusNotFound, failure.KindNotFound, "room not found"},
		{"Conflict", failure.Conflict("email taken"), http.StatusConflict, failure.KindConflict, "email taken"},
		{"Forbidden", failure.Forbidden("not yours"), http.StatusForbidden, failure.KindForbidden, "not yours"},
		{"Unavailable", failure.Unavailable("room closed"), http.StatusUnprocessableEntity, failure.KindUnavailable, "room closed"},
		{"InvalidRange", failure.InvalidRange("check_out must be after check_in"), http.StatusBadRequest, failure.KindInvalidRange, "check_out must be after check_in"},
		{"AlreadyCancelled", failure.AlreadyCancelled("booking already cancelled"), http.StatusConflict, failure.KindAlreadyCancelled, "booking already cancelled"},
		{"InvalidState", failure.InvalidState("booking completed"), http.StatusConflict, failure.KindInvalidState, "booking completed"},
		{"TooManyRequests", failure.TooManyRequests("slow down"), http.StatusTooManyRequests, failure.KindTooManyRequests, "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f *failure.Failure
			require.ErrorAs(t, tt.err, &f)
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.message, f.Error())
		})
	}
}

func TestNilInputs(t *testing.T) {
	assert.NoError(t, failure.BadRequest(nil))
	assert.NoError(t, failure.InternalError(nil))
}

func TestConflictWithDetail(t *testing.T) {
	detail := map[string]string{"check_in": "2024-01-10", "check_out": "2024-01-13"}

	err := failure.ConflictWithDetail("room already booked", detail)

	var f *failure.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, http.StatusConflict, f.Code)
	assert.Equal(t, failure.KindConflict, f.Kind)
	assert.Equal(t, detail, f.Detail)
}

func TestGetCodeAndKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"failure", failure.NotFound("x"), http.StatusNotFound, failure.KindNotFound},
		{"wrapped failure", fmt.Errorf("outer: %w", failure.Forbidden("x")), http.StatusForbidden, failure.KindForbidden},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, failure.KindInternal},
		{"predefined", failure.ForbiddenError, http.StatusForbidden, failure.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, failure.GetCode(tt.err))
			assert.Equal(t, tt.kind, failure.GetKind(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("cancel: %w", failure.AlreadyCancelled("done"))

	assert.True(t, failure.Is(err, failure.KindAlreadyCancelled))
	assert.False(t, failure.Is(err, failure.KindConflict))
}
