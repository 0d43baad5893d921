// Package report renders a session.Result as colored text or JSON.
package report

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/session"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

const summaryTemplate = "templates/summary.tpl"

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates raw as a Format. Blank input selects text.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("report: unsupported format %q (must be text or json)", raw)
	}
}

// Shared color printers for outcome labels.
var (
	colorRed   = color.New(color.FgRed, color.Bold)
	colorGreen = color.New(color.FgGreen, color.Bold)
)

// ColorOutcome colors SUCCESS green and FAILURE red.
func ColorOutcome(val string) string {
	switch session.Outcome(val) {
	case session.OutcomeSuccess:
		return colorGreen.Sprint(val)
	case session.OutcomeFailure:
		return colorRed.Sprint(val)
	default:
		return val
	}
}

var (
	setOnce sync.Once
	set     *pongo2.TemplateSet
)

func templateSet() *pongo2.TemplateSet {
	setOnce.Do(func() {
		if !pongo2.FilterExists("outcome") {
			_ = pongo2.RegisterFilter("outcome", func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
				return pongo2.AsValue(ColorOutcome(in.String())), nil
			})
		}
		set = pongo2.NewSet("formfuzz", pongo2.NewFSLoader(templatesFS))
	})
	return set
}

// Write renders res to w in the requested format.
func Write(w io.Writer, res session.Result, format Format) error {
	switch format {
	case FormatText, "":
		return WriteText(w, res)
	case FormatJSON:
		return WriteJSON(w, res)
	default:
		return fmt.Errorf("report: unsupported format %q", format)
	}
}

// WriteText renders the human readable summary.
func WriteText(w io.Writer, res session.Result) error {
	tmpl, err := templateSet().FromFile(summaryTemplate)
	if err != nil {
		return fmt.Errorf("report: load template: %w", err)
	}

	fields := make([]map[string]any, 0, len(res.Processed))
	for _, name := range res.Fields() {
		fields = append(fields, map[string]any{
			"name":  name,
			"value": FormatValue(res.Processed[name]),
			"rows":  res.Rows[name],
		})
	}
	skipped := make([]map[string]any, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		entry := map[string]any{"name": s.Name, "reason": string(s.Reason)}
		if cause := skipCause(s); cause != "" {
			entry["err"] = cause
		}
		skipped = append(skipped, entry)
	}

	ctx := pongo2.Context{
		"outcome":         string(res.Outcome),
		"model":           res.Model,
		"record_id":       int64(res.RecordID),
		"duration":        res.Duration.String(),
		"processed_count": res.ProcessedCount,
		"required_count":  res.RequiredProcessedCount,
		"ignored_count":   res.IgnoredCount,
		"skipped_count":   len(res.Skipped),
		"fields":          fields,
		"skipped":         skipped,
		"ignored":         res.Ignored,
	}
	if res.Err != nil {
		ctx["error"] = res.Err.Error()
	}
	if err := tmpl.ExecuteWriter(ctx, w); err != nil {
		return fmt.Errorf("report: render summary: %w", err)
	}
	return nil
}

// FormatValue renders a generated value on one line. Long scalars are
// shortened so HTML and text payloads keep the summary readable.
func FormatValue(v model.GeneratedValue) string {
	const maxLen = 60
	out := fmt.Sprint(model.Raw(v))
	if model.IsUnavailable(v) {
		out = "unavailable"
	}
	out = strings.ReplaceAll(out, "\n", " ")
	if r := []rune(out); len(r) > maxLen {
		out = string(r[:maxLen-3]) + "..."
	}
	return out
}

// skipCause renders the error behind a skip. A field error naming the
// skipped field itself is unwrapped so the name is not printed twice.
func skipCause(s session.SkippedField) string {
	if s.Err == nil {
		return ""
	}
	if model.FieldOf(s.Err) == s.Name {
		if inner := errors.Unwrap(s.Err); inner != nil {
			return inner.Error()
		}
	}
	return s.Err.Error()
}

type jsonSkip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

type jsonResult struct {
	Outcome                string         `json:"outcome"`
	Model                  string         `json:"model"`
	RecordID               model.ID       `json:"record_id,omitempty"`
	ProcessedCount         int            `json:"processed_count"`
	RequiredProcessedCount int            `json:"required_processed_count"`
	IgnoredCount           int            `json:"ignored_count"`
	Processed              map[string]any `json:"processed"`
	Rows                   map[string]int `json:"rows,omitempty"`
	Ignored                []string       `json:"ignored,omitempty"`
	Skipped                []jsonSkip     `json:"skipped,omitempty"`
	DurationMS             int64          `json:"duration_ms"`
	Error                  string         `json:"error,omitempty"`
}

// WriteJSON renders res as indented JSON with raw field values.
func WriteJSON(w io.Writer, res session.Result) error {
	out := jsonResult{
		Outcome:                string(res.Outcome),
		Model:                  res.Model,
		RecordID:               res.RecordID,
		ProcessedCount:         res.ProcessedCount,
		RequiredProcessedCount: res.RequiredProcessedCount,
		IgnoredCount:           res.IgnoredCount,
		Processed:              make(map[string]any, len(res.Processed)),
		Rows:                   res.Rows,
		Ignored:                res.Ignored,
		DurationMS:             res.Duration.Milliseconds(),
	}
	for name, v := range res.Processed {
		out.Processed[name] = model.Raw(v)
	}
	for _, s := range res.Skipped {
		entry := jsonSkip{Name: s.Name, Reason: string(s.Reason), Error: skipCause(s)}
		out.Skipped = append(out.Skipped, entry)
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}
