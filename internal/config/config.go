// Package config loads docsql settings and the document catalogue.
//
// Settings are layered, later sources overriding earlier ones:
//
//  1. built-in defaults
//  2. the YAML config file (docsql.yaml)
//  3. DOCSQL_* environment variables
//  4. explicitly set command-line flags
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/docsql/internal/schema"
)

// EnvPrefix is the prefix of environment overrides: DOCSQL_DSN -> dsn.
const EnvPrefix = "DOCSQL_"

// DefaultFile is the config file looked up in the working directory when
// no path is given.
const DefaultFile = "docsql.yaml"

// Config holds the resolved settings.
type Config struct {
	// DSN is the Postgres connection string used by "run".
	DSN string `koanf:"dsn"`

	// Schema is the database schema of document tables.
	Schema string `koanf:"schema"`

	// Casing is the JSON key casing: default, camel or snake.
	Casing string `koanf:"casing"`

	// Limit is the statement limit hint passed to the compiler. Zero means
	// no limit beyond the query's own Take.
	Limit int `koanf:"limit"`

	// Types declares object types: type name -> member name -> type expression.
	Types map[string]map[string]string `koanf:"types"`

	// Documents maps each stored document name to its root type expression.
	Documents map[string]string `koanf:"documents"`
}

// Load resolves the configuration. path may be empty, in which case
// DefaultFile is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"schema": schema.DefaultSchema,
		"casing": schema.CasingDefault.String(),
		"limit":  0,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("limit must be non-negative, got %d", cfg.Limit)
	}
	return &cfg, nil
}

// Registry builds the document catalogue.
//
// Object types are declared first and filled second, so members may refer
// to any declared type regardless of order, including the type itself.
func (c *Config) Registry() (*schema.Registry, error) {
	casing, err := schema.ParseCasing(c.Casing)
	if err != nil {
		return nil, err
	}

	objects := make(map[string]*schema.Type, len(c.Types))
	for name := range c.Types {
		objects[name] = schema.Object(name)
	}
	lookup := func(name string) (*schema.Type, bool) {
		t, ok := objects[name]
		return t, ok
	}

	for _, name := range sortedKeys(c.Types) {
		members := c.Types[name]
		for _, member := range sortedKeys(members) {
			t, err := schema.ParseType(members[member], lookup)
			if err != nil {
				return nil, fmt.Errorf("type %s member %s: %w", name, member, err)
			}
			objects[name].Members = append(objects[name].Members, schema.Prop(member, t))
		}
	}

	reg := schema.NewRegistry(schema.WithSchema(c.Schema), schema.WithCasing(casing))
	for _, doc := range sortedKeys(c.Documents) {
		t, err := schema.ParseType(c.Documents[doc], lookup)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc, err)
		}
		if t.Kind != schema.KindObject {
			return nil, fmt.Errorf("document %s: root type must be an object, got %s", doc, t)
		}
		reg.Register(doc, t)
	}
	return reg, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
