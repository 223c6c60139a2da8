// Package shared holds helpers used by more than one datacleaner package.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler with log assertions
//   - sample datasets and multipart upload builders for handler tests
//
// Nothing in this tree may import a domain package.
package shared
