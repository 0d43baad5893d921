// Package formfuzz fills form views with random schema-valid values and
// saves the resulting record, reporting which fields were written, which were
// changed by onchange handlers and which were skipped.
//
// The helpers below wire the pieces in pkg/ together for the common cases:
// fuzzing a form backed by a fixture host, or by models imported from an
// OpenAPI request body.
package formfuzz

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-formfuzz/pkg/backend/memory"
	"github.com/goliatone/go-formfuzz/pkg/generator"
	"github.com/goliatone/go-formfuzz/pkg/openapi"
	"github.com/goliatone/go-formfuzz/pkg/session"
)

// Result aliases session.Result for callers using the root package.
type Result = session.Result

// Request aliases session.Request.
type Request = session.Request

// Option aliases session.Option.
type Option = session.Option

// Backend aliases session.Backend.
type Backend = session.Backend

// NewSession exposes the session constructor from the top-level module.
func NewSession(backend Backend, options ...Option) (*session.Session, error) {
	return session.New(backend, options...)
}

// WithSeed makes runs reproducible by seeding the value generator.
func WithSeed(seed int64) Option {
	return session.WithGenerator(generator.New(generator.WithSeed(seed)))
}

// Run performs one fuzz pass against backend.
func Run(ctx context.Context, backend Backend, req Request, options ...Option) (Result, error) {
	s, err := session.New(backend, options...)
	if err != nil {
		return Result{}, err
	}
	return s.Run(ctx, req)
}

// RunFixtures loads a fixture file or directory into an in-memory host and
// fuzzes req against it.
func RunFixtures(ctx context.Context, path string, req Request, options ...Option) (Result, error) {
	host, err := memory.LoadFile(path)
	if err != nil {
		return Result{}, err
	}
	return Run(ctx, host, req, options...)
}

// RunOpenAPI imports the request body of operationID from an OpenAPI
// document and fuzzes the resulting form.
func RunOpenAPI(ctx context.Context, data []byte, operationID string, options ...Option) (Result, error) {
	models, err := openapi.Import(ctx, data, operationID)
	if err != nil {
		return Result{}, err
	}
	if len(models) == 0 {
		return Result{}, errors.New("formfuzz: openapi import produced no models")
	}
	host, err := memory.New(models...)
	if err != nil {
		return Result{}, fmt.Errorf("formfuzz: %w", err)
	}
	return Run(ctx, host, Request{Model: models[0].Name}, options...)
}
