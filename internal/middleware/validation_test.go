package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "datacleaner/internal/errors"
	"datacleaner/internal/shared/testutil"
)

type convertBody struct {
	Column string `json:"column" validate:"required,column"`
	Target string `json:"target" validate:"required,kind"`
}

type dropBody struct {
	Columns []string `json:"columns" validate:"required,min=1,dive,column"`
}

func validationFields(t *testing.T, err error) []apierrors.ValidationError {
	t.Helper()
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok)
	return details.Errors
}

func TestRequestValidator_DecodeAndValidate(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewRequestValidator(logger)

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"column":"price","target":"Int"}`))
		var body convertBody

		require.NoError(t, v.DecodeAndValidate(req, &body))
		assert.Equal(t, "price", body.Column)
		assert.Equal(t, "Int", body.Target)
	})

	t.Run("unknown target kind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"column":"price","target":"bool"}`))
		var body convertBody

		fields := validationFields(t, v.DecodeAndValidate(req, &body))
		require.Len(t, fields, 1)
		assert.Equal(t, "target", fields[0].Field)
		assert.Contains(t, fields[0].Message, "integer, float, string, date, year, month")
	})

	t.Run("blank column in list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/", strings.NewReader(`{"columns":["a","  "]}`))
		var body dropBody

		fields := validationFields(t, v.DecodeAndValidate(req, &body))
		require.Len(t, fields, 1)
		assert.Equal(t, "columns[1]", fields[0].Field)
	})

	t.Run("empty list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/", strings.NewReader(`{"columns":[]}`))
		var body dropBody

		fields := validationFields(t, v.DecodeAndValidate(req, &body))
		assert.Equal(t, "columns", fields[0].Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"column":`))
		var body convertBody

		err := v.DecodeAndValidate(req, &body)
		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INVALID_REQUEST", apiErr.ErrorCode)
	})

	t.Run("missing body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		var body convertBody

		var apiErr *apierrors.APIError
		require.ErrorAs(t, v.DecodeAndValidate(req, &body), &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("oversized body", func(t *testing.T) {
		big := `{"column":"` + strings.Repeat("x", maxJSONBody) + `","target":"int"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var body convertBody

		var apiErr *apierrors.APIError
		require.ErrorAs(t, v.DecodeAndValidate(req, &body), &apiErr)
		assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
	})
}

func TestContentTypeValidator(t *testing.T) {
	handler := ContentTypeValidator("application/json")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json", http.MethodPost, "{}", "application/json; charset=utf-8", http.StatusNoContent},
		{"form", http.MethodPost, "a=b", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing header", http.MethodPost, "{}", "", http.StatusUnsupportedMediaType},
		{"get is skipped", http.MethodGet, "", "", http.StatusNoContent},
		{"empty delete is skipped", http.MethodDelete, "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	t.Run("int in range", func(t *testing.T) {
		rec := httptest.NewRecorder()
		n, ok := v.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?n=20", nil), "n", 1, 100, 5)
		assert.True(t, ok)
		assert.Equal(t, 20, n)
	})

	t.Run("int default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		n, ok := v.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/", nil), "n", 1, 100, 5)
		assert.True(t, ok)
		assert.Equal(t, 5, n)
	})

	t.Run("int out of range", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := v.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?n=0", nil), "n", 1, 100, 5)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("enum", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := v.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?mode=middle", nil), "mode", []string{"head", "tail"}, "head")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bool", func(t *testing.T) {
		rec := httptest.NewRecorder()
		b, ok := v.ValidateBool(rec, httptest.NewRequest(http.MethodGet, "/?bom=true", nil), "bom", false)
		assert.True(t, ok)
		assert.True(t, b)
	})

	t.Run("required string", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := v.RequireString(rec, httptest.NewRequest(http.MethodGet, "/?x=", nil), "x")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
