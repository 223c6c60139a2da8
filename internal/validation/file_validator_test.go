package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacleaner/internal/config"
	"datacleaner/internal/shared/testutil"
)

func newValidator(t *testing.T) *FileValidator {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewFileValidator(logger, config.UploadConfig{
		MaxBytes:          1024,
		AllowedExtensions: []string{".csv", "xlsx", " .JSON "},
	})
}

func TestFileValidator_ValidateUpload(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  error
	}{
		{name: "csv", filename: "sales.csv", size: 10},
		{name: "extension without dot in config", filename: "book.xlsx", size: 10},
		{name: "case insensitive", filename: "DATA.JSON", size: 10},
		{name: "path components ignored", filename: "../../tmp/sales.csv", size: 10},
		{name: "unknown size", filename: "sales.csv", size: -1},
		{name: "exactly at limit", filename: "sales.csv", size: 1024},
		{name: "empty name", filename: "", size: 10, wantErr: ErrMissingFilename},
		{name: "unsupported extension", filename: "report.pdf", size: 10, wantErr: ErrExtensionNotAllowed},
		{name: "no extension", filename: "README", size: 10, wantErr: ErrExtensionNotAllowed},
		{name: "empty file", filename: "sales.csv", size: 0, wantErr: ErrEmptyFile},
		{name: "too large", filename: "sales.csv", size: 1025, wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpload(tt.filename, tt.size)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFileValidator_EmptyConfigAllowsAnything(t *testing.T) {
	v := NewFileValidator(nil, config.UploadConfig{})

	assert.NoError(t, v.ValidateUpload("anything.bin", 1<<40))
	assert.Zero(t, v.MaxBytes())
}

func TestFileValidator_ValidateFile(t *testing.T) {
	v := newValidator(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("a,b\n1,2\n"), 0o644))
	assert.NoError(t, v.ValidateFile(good))

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.ErrorIs(t, v.ValidateFile(empty), ErrEmptyFile)

	assert.ErrorIs(t, v.ValidateFile(dir), ErrNotAFile)

	err := v.ValidateFile(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := newValidator(t)
	dir := filepath.Join(t.TempDir(), "nested", "out")

	require.NoError(t, v.ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write test file must be removed")
}
