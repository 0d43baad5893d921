package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-formfuzz/pkg/backend/memory"
	"github.com/goliatone/go-formfuzz/pkg/openapi"
)

// hostFlags selects where form definitions come from.
type hostFlags struct {
	fixtures  string
	openAPI   string
	operation string
}

// loadHost builds the in-memory host and, for OpenAPI sources, the name of
// the imported form model.
func loadHost(ctx context.Context, f hostFlags) (*memory.Host, string, error) {
	switch {
	case strings.TrimSpace(f.openAPI) != "":
		if strings.TrimSpace(f.operation) == "" {
			return nil, "", errors.New("--operation is required with --openapi")
		}
		data, err := os.ReadFile(f.openAPI)
		if err != nil {
			return nil, "", fmt.Errorf("read openapi document: %w", err)
		}
		models, err := openapi.Import(ctx, data, f.operation)
		if err != nil {
			return nil, "", err
		}
		host, err := memory.New(models...)
		if err != nil {
			return nil, "", err
		}
		return host, models[0].Name, nil
	case strings.TrimSpace(f.fixtures) != "":
		host, err := memory.LoadFile(f.fixtures)
		if err != nil {
			return nil, "", err
		}
		return host, "", nil
	default:
		return nil, "", errors.New("one of --fixtures or --openapi is required")
	}
}
