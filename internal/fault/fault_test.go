package fault

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		code   string
	}{
		{Unauthenticated, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{Forbidden, http.StatusForbidden, "FORBIDDEN"},
		{Internal, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{Transport, http.StatusInternalServerError, "STORAGE_ERROR"},
		{NotFound, http.StatusNotFound, "NOT_FOUND"},
		{PreconditionMissing, http.StatusBadRequest, "MISSING_PARAMETERS"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.kind.Status(), tc.kind.String())
		assert.Equal(t, tc.code, tc.kind.Code(), tc.kind.String())
	}
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	base := New(NotFound, "delete", "file not found")
	wrapped := fmt.Errorf("handler: %w", base)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, Transport))
	assert.False(t, Is(nil, Internal))
}

func TestUnclassifiedIsInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Internal, KindOf(err))

	fe := As(err)
	require.NotNil(t, fe)
	assert.Equal(t, Internal, fe.Kind)
	assert.ErrorIs(t, fe, err)
}

func TestErrorText(t *testing.T) {
	cause := errors.New("googleapi: 403 denied")
	err := Wrap(Transport, "upload", "failed to upload file", cause)

	assert.Equal(t, "upload: failed to upload file: googleapi: 403 denied", err.Error())
	assert.Equal(t, "googleapi: 403 denied", err.Detail())
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, New(Forbidden, "", "").Detail())
}

func TestWriteHTTP(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteHTTP(rr, Wrap(Transport, "upload", "failed to upload file", errors.New("quota exceeded")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body Response
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, Response{
		Status:  http.StatusInternalServerError,
		Message: "failed to upload file",
		Code:    "STORAGE_ERROR",
		Details: "quota exceeded",
	}, body)
}

func TestResponseForUnclassified(t *testing.T) {
	resp := ResponseFor(errors.New("nil pointer"))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", resp.Code)
	assert.Equal(t, "internal server error", resp.Message)
}
