package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formfuzz/pkg/config"
	"github.com/goliatone/go-formfuzz/pkg/report"
	"github.com/goliatone/go-formfuzz/pkg/session"
)

type runFlags struct {
	hostFlags
	model      string
	viewRef    string
	seed       int64
	configPath string
	format     string
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fuzz one form and save the record",
		Long: `Open a form, fill every editable field with a random valid value and save it.
The summary lists written fields, fields changed by onchange handlers and skipped
fields. The exit status is 2 when the record could not be saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFuzz(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.fixtures, "fixtures", "", "YAML/JSON fixture file or directory")
	flags.StringVar(&f.openAPI, "openapi", "", "OpenAPI document to import the form from")
	flags.StringVar(&f.operation, "operation", "", "operation id whose request body becomes the form")
	flags.StringVar(&f.model, "model", "", "model to fuzz (prompted when omitted on a terminal)")
	flags.StringVar(&f.viewRef, "view-ref", "", "form view reference (default view when empty)")
	flags.Int64Var(&f.seed, "seed", 0, "seed for reproducible runs")
	flags.StringVar(&f.configPath, "config", "", "config file (.yaml or .toml, default "+config.FileName+")")
	flags.StringVar(&f.format, "format", "text", "report format: text or json")
	return cmd
}

func runFuzz(cmd *cobra.Command, f *runFlags) error {
	ctx := cmd.Context()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = &f.seed
	}
	if f.fixtures == "" {
		f.fixtures = cfg.Fixtures
	}
	modelName := firstNonEmpty(f.model, cfg.Model)
	viewRef := firstNonEmpty(f.viewRef, cfg.ViewRef)

	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}

	host, imported, err := loadHost(ctx, f.hostFlags)
	if err != nil {
		return err
	}
	modelName = firstNonEmpty(modelName, imported)
	if modelName == "" {
		if !interactive() {
			return errors.New("--model is required when stdin is not a terminal")
		}
		if modelName, err = pickModel(host.Models()); err != nil {
			return err
		}
	}

	opts := append(cfg.SessionOptions(), session.WithLogger(slog.Default()))
	s, err := session.New(host, opts...)
	if err != nil {
		return err
	}
	res, runErr := s.Run(ctx, session.Request{Model: modelName, ViewRef: viewRef})
	if err := report.Write(cmd.OutOrStdout(), res, format); err != nil {
		return err
	}
	if runErr != nil {
		return &exitCodeError{code: ExitRunFailure}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
