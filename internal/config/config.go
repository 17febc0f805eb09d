package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/Materials-Consortia/optimade-go/internal/mapper"
)

//go:embed schema.cue
var schemaSource string

// Error code constants - unified across all loader failure modes.
const (
	ErrCodeRead   = "C001" // File read error
	ErrCodeParse  = "C002" // YAML parse error
	ErrCodeSchema = "C003" // Schema violation
	ErrCodeBuild  = "C004" // Mapper construction error
)

// LoadError represents an error that occurred during config loading.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

// File is the decoded configuration document.
type File struct {
	Provider struct {
		Prefix string `yaml:"prefix"`
	} `yaml:"provider"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Entries map[string]Entry `yaml:"entries"`
}

// Entry configures one entry type.
type Entry struct {
	Quantities     map[string]string `yaml:"quantities"`
	Aliases        map[string]string `yaml:"aliases"`
	LengthAliases  map[string]string `yaml:"length_aliases"`
	TextFields     []string          `yaml:"text_fields"`
	Correlated     [][]string        `yaml:"correlated"`
	ProviderFields []ProviderField   `yaml:"provider_fields"`
}

// ProviderField mirrors mapper.ProviderField at the document level.
type ProviderField struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Unit        string `yaml:"unit"`
	Description string `yaml:"description"`
}

// Load reads, schema-checks and decodes the configuration at path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}
	return Parse(path, raw)
}

// Parse validates raw YAML against the embedded schema and decodes it.
// The path parameter is used for error messages only.
func Parse(path string, raw []byte) (*File, error) {
	// Decode loosely first so CUE sees the document's real shape, typos
	// included.
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}

	if err := validate(doc); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error()}
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	if len(f.Entries) == 0 {
		return nil, &LoadError{Code: ErrCodeSchema, Path: path, Message: "no entry types configured"}
	}
	return &f, nil
}

// validate unifies the decoded document with #Config and reports any
// violation.
func validate(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("looking up #Config: %w", err)
	}

	value := def.Unify(ctx.Encode(doc))
	if err := value.Err(); err != nil {
		return err
	}
	return value.Validate(cue.Concrete(true))
}

// MapperConfigs converts the document into per-entry-type mapper configs,
// sorted by entry type for deterministic registry construction.
func (f *File) MapperConfigs() []mapper.Config {
	types := make([]string, 0, len(f.Entries))
	for t := range f.Entries {
		types = append(types, t)
	}
	sort.Strings(types)

	out := make([]mapper.Config, 0, len(types))
	for _, t := range types {
		e := f.Entries[t]
		fields := make([]mapper.ProviderField, 0, len(e.ProviderFields))
		for _, pf := range e.ProviderFields {
			fields = append(fields, mapper.ProviderField{
				Name:        pf.Name,
				Type:        pf.Type,
				Unit:        pf.Unit,
				Description: pf.Description,
			})
		}
		out = append(out, mapper.Config{
			EntryType:      t,
			Quantities:     e.Quantities,
			Aliases:        e.Aliases,
			LengthAliases:  e.LengthAliases,
			ProviderPrefix: f.Provider.Prefix,
			ProviderFields: fields,
			TextFields:     e.TextFields,
			Correlated:     e.Correlated,
		})
	}
	return out
}

// Registry is a convenience that loads a config file and builds the mapper
// registry in one step.
func Registry(path string) (*mapper.Registry, *File, error) {
	f, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := mapper.NewRegistry(f.MapperConfigs()...)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeBuild, Path: path, Message: err.Error()}
	}
	return reg, f, nil
}
