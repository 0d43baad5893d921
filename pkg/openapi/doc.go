// Package openapi imports form-host models from OpenAPI 3 documents. The
// request body schema of one operation becomes a memory.Model whose fields
// and default form view mirror the schema's properties, so an API's write
// payload can be fuzzed through the in-memory host.
package openapi
