package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formfuzz/pkg/backend/memory"
	"github.com/goliatone/go-formfuzz/pkg/openapi"
)

func newModelsCmd() *cobra.Command {
	var fixtures, openAPI string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List fixture models or OpenAPI operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var names []string
			switch {
			case openAPI != "":
				data, err := os.ReadFile(openAPI)
				if err != nil {
					return fmt.Errorf("read openapi document: %w", err)
				}
				if names, err = openapi.Operations(cmd.Context(), data); err != nil {
					return err
				}
			case fixtures != "":
				host, err := memory.LoadFile(fixtures)
				if err != nil {
					return err
				}
				names = host.Models()
			default:
				return errors.New("one of --fixtures or --openapi is required")
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "YAML/JSON fixture file or directory")
	cmd.Flags().StringVar(&openAPI, "openapi", "", "OpenAPI document; lists its operation ids")
	return cmd
}
