package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_WithExtensionCopies(t *testing.T) {
	withSheets := ErrSheetRequired.WithExtension("sheets", []string{"a"})

	assert.Nil(t, ErrSheetRequired.Extensions)
	assert.Equal(t, []string{"a"}, withSheets.Extensions["sheets"])
	assert.Equal(t, ErrSheetRequired.StatusCode, withSheets.StatusCode)

	both := withSheets.WithExtension("hint", "pick one")
	assert.Len(t, withSheets.Extensions, 1)
	assert.Len(t, both.Extensions, 2)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", InvalidRequestWithError(fmt.Errorf("bad json")), http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation", ErrValidation("target", "required"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"validation message", NewValidationError("mode must be head or tail"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"column", ColumnNotFoundError("price"), http.StatusNotFound, "COLUMN_NOT_FOUND"},
		{"unreadable", UnreadableFileError(fmt.Errorf("bare quote")), http.StatusBadRequest, "UNREADABLE_FILE"},
		{"sheets", SheetRequiredError([]string{"a", "b"}), http.StatusConflict, "SHEET_REQUIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestAPIError_WithMessageCopies(t *testing.T) {
	custom := ErrNotNumeric.WithMessage(`column "region" is not numeric`)

	assert.Equal(t, "Column is not numeric", ErrNotNumeric.Message)
	assert.Equal(t, `column "region" is not numeric`, custom.Error())
	assert.Equal(t, ErrNotNumeric.StatusCode, custom.StatusCode)
	assert.Equal(t, ErrNotNumeric.ErrorCode, custom.ErrorCode)
}

func TestUnreadableFileError_CarriesCause(t *testing.T) {
	err := UnreadableFileError(fmt.Errorf("bare quote in line 3"))

	assert.Equal(t, "bare quote in line 3", err.Details)
	assert.Nil(t, ErrUnreadableFile.Details)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusConflict, TypeSheetRequired, "Conflict", "pick a sheet", "/upload").
		WithExtension("sheets", []string{"a", "b"}).
		WithExtension("status", "shadowed")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(http.StatusConflict), body["status"])
	assert.Equal(t, []any{"a", "b"}, body["sheets"])
	assert.Equal(t, "/upload", body["instance"])
}

func TestProblemDetails_WithExtensionOnZeroValue(t *testing.T) {
	pd := &ProblemDetails{}

	pd.WithExtension("k", 1)

	assert.Equal(t, 1, pd.Extensions["k"])
}
