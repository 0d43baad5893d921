package memory

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Load walks fsys and builds a Host from every JSON/YAML fixture file in it.
// Models may be spread over several files but each model must be defined
// once.
func Load(fsys fs.FS) (*Host, error) {
	if fsys == nil {
		return nil, fmt.Errorf("memory: fixture filesystem is required")
	}
	byName := make(map[string]Model)
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isFixtureFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("memory: read %s: %w", path, err)
		}
		models, err := ParseFixture(data, path)
		if err != nil {
			return err
		}
		for _, m := range models {
			if _, exists := byName[m.Name]; exists {
				return fmt.Errorf("memory: duplicate model %q (file %s)", m.Name, path)
			}
			byName[m.Name] = m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("memory: no models found in fixtures")
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	models := make([]Model, 0, len(names))
	for _, name := range names {
		models = append(models, byName[name])
	}
	return New(models...)
}

// LoadFile builds a Host from a fixture file or a directory of fixtures.
func LoadFile(path string) (*Host, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	if info.IsDir() {
		return Load(os.DirFS(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read %s: %w", path, err)
	}
	models, err := ParseFixture(data, path)
	if err != nil {
		return nil, err
	}
	return New(models...)
}

type fixtureFile struct {
	Models map[string]modelFile `json:"models" yaml:"models"`
}

type modelFile struct {
	Fields   map[string]fieldFile `json:"fields" yaml:"fields"`
	Views    map[string]string    `json:"views" yaml:"views"`
	Onchange []OnchangeRule       `json:"onchange" yaml:"onchange"`
	Records  []map[string]any     `json:"records" yaml:"records"`
}

type fieldFile struct {
	Type      string         `json:"type" yaml:"type"`
	String    string         `json:"string" yaml:"string"`
	Relation  string         `json:"relation" yaml:"relation"`
	Required  bool           `json:"required" yaml:"required"`
	Readonly  bool           `json:"readonly" yaml:"readonly"`
	Selection []model.Scalar `json:"selection" yaml:"selection"`
	Default   any            `json:"default" yaml:"default"`
}

// ParseFixture decodes one fixture document, trying JSON before YAML.
func ParseFixture(data []byte, source string) ([]Model, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("memory: file %s is empty", source)
	}
	var doc fixtureFile
	if err := json.Unmarshal(data, &doc); err != nil {
		doc = fixtureFile{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("memory: parse %s: invalid JSON or YAML: %w", source, err)
		}
	}

	names := make([]string, 0, len(doc.Models))
	for name := range doc.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Model, 0, len(names))
	for _, name := range names {
		m, err := normaliseModel(strings.TrimSpace(name), doc.Models[name], source)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func normaliseModel(name string, raw modelFile, source string) (Model, error) {
	if name == "" {
		return Model{}, fmt.Errorf("memory: file %s defines a model with an empty name", source)
	}
	m := Model{
		Name:     name,
		Fields:   make(map[string]model.Field, len(raw.Fields)),
		Views:    make(map[string]string, len(raw.Views)),
		Onchange: append([]OnchangeRule(nil), raw.Onchange...),
		Records:  raw.Records,
	}
	for fieldName, f := range raw.Fields {
		fieldName = strings.TrimSpace(fieldName)
		ft, err := model.ParseFieldType(f.Type)
		if err != nil {
			return Model{}, fmt.Errorf("memory: model %q (file %s) field %q: %w", name, source, fieldName, err)
		}
		m.Fields[fieldName] = model.Field{
			Name:      fieldName,
			Type:      ft,
			String:    f.String,
			Relation:  strings.TrimSpace(f.Relation),
			Required:  f.Required,
			Readonly:  f.Readonly,
			Selection: normaliseScalars(f.Selection),
		}
		if f.Default != nil {
			if m.Defaults == nil {
				m.Defaults = make(map[string]any)
			}
			m.Defaults[fieldName] = normaliseNumber(f.Default)
		}
	}
	for ref, src := range raw.Views {
		m.Views[strings.TrimSpace(ref)] = src
	}
	return m, nil
}

func normaliseScalars(values []model.Scalar) []model.Scalar {
	if len(values) == 0 {
		return nil
	}
	out := make([]model.Scalar, len(values))
	for i, v := range values {
		out[i] = normaliseNumber(v)
	}
	return out
}

// normaliseNumber folds the number types JSON and YAML decoders produce into
// int64 when the value is whole.
func normaliseNumber(v any) any {
	switch typed := v.(type) {
	case int:
		return int64(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return int64(typed)
		}
		return typed
	default:
		return v
	}
}

func isFixtureFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
