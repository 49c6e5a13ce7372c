package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	var verr *ValidationError
	assert.NoError(t, verr.OrNil())
	assert.NoError(t, (&ValidationError{}).OrNil())

	err := (&ValidationError{}).Add("name", "is required").Add("capital", "must be positive").OrNil()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "validation failed: capital: must be positive; name: is required", err.Error())
}

func TestSendServiceError(t *testing.T) {
	tests := []struct {
		err     error
		code    int
		errCode string
		message string
	}{
		{NewValidationError("name", "is required"), http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed"},
		{Invalidf("category %q is unknown", "x"), http.StatusBadRequest, "INVALID_INPUT", `category "x" is unknown`},
		{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized access"},
		{fmt.Errorf("check: %w", ErrForbidden), http.StatusForbidden, "FORBIDDEN", "Access denied"},
		{ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
		{Conflictf("last owner"), http.StatusConflict, "CONFLICT", "last owner"},
		{ErrConflict, http.StatusConflict, "CONFLICT", "conflict"},
		{errors.New("boom"), http.StatusInternalServerError, "SERVER_ERROR", "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.errCode+"/"+tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, SendServiceError(c, nil, tt.err))
			assert.Equal(t, tt.code, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.errCode, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29", "date")
	require.NoError(t, err)
	assert.Equal(t, 29, d.Day())

	_, err = ParseDate("2024-02-29T10:00:00Z", "date")
	assert.NoError(t, err)

	_, err = ParseDate("29/02/2024", "date")
	assert.ErrorIs(t, err, ErrInvalidInput)

	none, err := ParseOptionalDate(nil, "date")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query          string
		limit, offset  int
		wantValidation bool
	}{
		{"", DefaultPageSize, 0, false},
		{"limit=10&offset=20", 10, 20, false},
		{"limit=1000", MaxPageSize, 0, false},
		{"limit=0", 0, 0, true},
		{"offset=-1", 0, 0, true},
		{"limit=abc", 0, 0, true},
	}
	for _, tt := range tests {
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil), httptest.NewRecorder())
		limit, offset, err := Pagination(c)
		if tt.wantValidation {
			assert.ErrorIs(t, err, ErrInvalidInput, tt.query)
			continue
		}
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.limit, limit, tt.query)
		assert.Equal(t, tt.offset, offset, tt.query)
	}
}

func TestValidateUUID(t *testing.T) {
	_, err := ValidateUUID("nope", "id")
	assert.ErrorIs(t, err, ErrInvalidInput)

	id, err := ValidateOptionalUUID("  ", "id")
	assert.NoError(t, err)
	assert.Nil(t, id)

	blank := "   "
	assert.Nil(t, TrimmedOrNil(&blank))
}
