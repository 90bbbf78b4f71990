package queryfile

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Load reads and parses a query file. CUE files (.cue) are evaluated as
// CUE; YAML and JSON files (.yaml, .yml, .json) are decoded and then
// checked against the same #Query schema.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes parses query file content; name selects the format by extension
// and appears in error positions.
func LoadBytes(name string, data []byte) (*File, error) {
	ctx := cuecontext.New()

	var v cue.Value
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue":
		v = ctx.CompileBytes(data, cue.Filename(name))
	case ".yaml", ".yml", ".json":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ParseError{Field: "yaml", Message: err.Error()}
		}
		v = ctx.Encode(doc)
	default:
		return nil, &ParseError{Field: "file", Message: fmt.Sprintf("unsupported query file extension %q", ext)}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Query"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("query schema: %w", err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return Parse(unified)
}
