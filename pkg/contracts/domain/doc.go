// Package domain holds the types shared by the cleaning engine, the HTTP
// API and the CLI: column kinds, conversion outcomes and the results of the
// analytics operations.
package domain
