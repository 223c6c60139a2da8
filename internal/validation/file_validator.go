// Package validation checks input files before they reach the loader.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"datacleaner/internal/config"
)

var (
	ErrMissingFilename     = errors.New("file name is required")
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file exceeds the upload limit")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrNotAFile            = errors.New("path is not a regular file")
)

// FileValidator enforces the upload limits on uploaded and local files.
type FileValidator struct {
	logger   *slog.Logger
	maxBytes int64
	allowed  map[string]struct{}
}

// NewFileValidator creates a validator from the upload config. An empty
// extension list allows every extension; a non-positive MaxBytes disables
// the size check.
func NewFileValidator(logger *slog.Logger, cfg config.UploadConfig) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &FileValidator{
		logger:   logger.With(slog.String("component", "file_validator")),
		maxBytes: cfg.MaxBytes,
		allowed:  allowed,
	}
}

// MaxBytes returns the configured size limit.
func (v *FileValidator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateUpload checks the name and declared size of an uploaded file.
// A negative size means the size is unknown and skips the size checks.
func (v *FileValidator) ValidateUpload(filename string, size int64) error {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return ErrMissingFilename
	}

	if err := v.checkExtension(name); err != nil {
		v.logger.Warn("upload rejected",
			slog.String("file", name),
			slog.String("reason", "extension"))
		return err
	}

	if size == 0 {
		v.logger.Warn("upload rejected",
			slog.String("file", name),
			slog.String("reason", "empty"))
		return fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}

	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("upload rejected",
			slog.String("file", name),
			slog.String("reason", "size"),
			slog.Int64("size", size),
			slog.Int64("max_bytes", v.maxBytes))
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, v.maxBytes)
	}

	v.logger.Debug("upload validated",
		slog.String("file", name),
		slog.Int64("size", size))
	return nil
}

// ValidateFile checks that path is a readable regular file within the
// upload limits.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	f, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	_ = f.Close()

	return v.ValidateUpload(path, info.Size())
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	_ = os.Remove(name)
	return nil
}

func (v *FileValidator) checkExtension(name string) error {
	if len(v.allowed) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := v.allowed[ext]; !ok {
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: %s", ErrExtensionNotAllowed, ext)
	}
	return nil
}
