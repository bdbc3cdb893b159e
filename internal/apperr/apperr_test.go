package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Format("bad %s", "date"), http.StatusBadRequest},
		{Auth("who are you"), http.StatusUnauthorized},
		{NotFound("Todo with ID %d not found", 3), http.StatusNotFound},
		{Persistence(errors.New("connection reset")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("gone")), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestBodyOf_HidesCauses(t *testing.T) {
	body := BodyOf(Persistence(errors.New("pq: password authentication failed")))
	assert.Equal(t, Body{Message: "internal server error", Code: 500}, body)

	body = BodyOf(errors.New("dial tcp 10.0.0.1:5432"))
	assert.Equal(t, "internal server error", body.Message)

	err := Persistence(errors.New("boom"))
	assert.EqualError(t, errors.Unwrap(err), "boom")
}

func TestValidationFields(t *testing.T) {
	err := ValidationFields(map[string][]string{
		"username": {"Please use a different username."},
		"email":    {"Email is required", "Please enter a valid email address"},
	})
	assert.True(t, Is(err, KindValidation))
	assert.Equal(t, "email: Email is required, Please enter a valid email address; username: Please use a different username.", err.Error())

	body := BodyOf(err)
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Len(t, body.Errors, 2)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, NotFound("Todo with ID %d not found", 9))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Todo with ID 9 not found","code":404}`, rec.Body.String())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("x")))
	assert.Equal(t, KindAuth, KindOf(Auth("x")))
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
