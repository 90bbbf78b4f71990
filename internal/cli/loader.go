package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/config"
	"github.com/roach88/docsql/internal/queryfile"
	"github.com/roach88/docsql/internal/querysql"
)

// Workspace is everything a command needs to compile one query file.
type Workspace struct {
	Config   *config.Config
	Compiler *querysql.Compiler
	File     *queryfile.File
	Path     string
}

// Limit returns the statement limit hint: the query file's own limit when
// set, otherwise the configured one.
func (w *Workspace) Limit() int {
	if w.File.Limit > 0 {
		return w.File.Limit
	}
	return w.Config.Limit
}

// LoadError represents an error that occurred while loading inputs.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadWorkspace resolves configuration (file, env and the command's flags),
// builds the document catalogue and parses the query file.
func LoadWorkspace(opts *RootOptions, cmd *cobra.Command, queryPath string) (*Workspace, error) {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: fmt.Sprintf("building catalogue: %v", err)}
	}

	file, err := LoadQueryFile(queryPath)
	if err != nil {
		return nil, err
	}

	return &Workspace{
		Config:   cfg,
		Compiler: querysql.NewCompiler(reg),
		File:     file,
		Path:     queryPath,
	}, nil
}

// LoadQueryFile parses a query file, converting failures to LoadErrors.
func LoadQueryFile(path string) (*queryfile.File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing query file: %v", err)}
	}

	file, err := queryfile.Load(path)
	if err != nil {
		var pe *queryfile.ParseError
		if errors.As(err, &pe) {
			return nil, &LoadError{Code: ErrCodeQueryFile, Message: fmt.Sprintf("%s: %s", pe.Field, pe.Message), Pos: pe.Pos}
		}
		return nil, &LoadError{Code: ErrCodeQueryFile, Message: err.Error()}
	}
	return file, nil
}

// BindIncludes turns the file's include specs into joins. Related documents
// are appended to collected under their alias; a nil map discards them.
func (w *Workspace) BindIncludes(collected map[string][]any) ([]querysql.Join, error) {
	if len(w.File.Includes) == 0 {
		return nil, nil
	}

	owner, err := w.Compiler.IncludeOwner(w.File.Query)
	if err != nil {
		return nil, err
	}

	joins := make([]querysql.Join, 0, len(w.File.Includes))
	for _, spec := range w.File.Includes {
		related, err := w.Compiler.Registry().Mapping(spec.Document)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeQueryFile, Message: fmt.Sprintf("include %s: %v", spec.Alias, err)}
		}

		alias := spec.Alias
		sink := querysql.SinkFunc[any](func(doc any) {
			if collected != nil {
				collected[alias] = append(collected[alias], doc)
			}
		})

		join, err := querysql.NewInclude[any](owner, related, spec.Members, alias, spec.Kind, sink)
		if err != nil {
			return nil, err
		}
		joins = append(joins, join)
	}
	return joins, nil
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Config or catalogue error
	ErrCodeQueryFile   = "E003" // Query file load or parse error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeConnect     = "E006" // Database connection failed
	ErrCodeExecute     = "E007" // Statement execution failed
	ErrCodeWriteFailed = "E008" // File write error

	// Compile errors
	ErrCodeNesting         = "E101" // Second flatten in one query
	ErrCodeUnresolvedField = "E102" // Member path does not resolve
	ErrCodeUnsupportedExpr = "E103" // Expression cannot be rendered
	ErrCodeInvalidQuery    = "E104" // Malformed clause sequence
)

// ErrorCode maps an error from any stage to a CLI error code.
func ErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}

	var ce *querysql.CompileError
	if errors.As(err, &ce) {
		switch ce.Code {
		case querysql.ErrCodeUnsupportedNesting:
			return ErrCodeNesting
		case querysql.ErrCodeUnresolvedField:
			return ErrCodeUnresolvedField
		case querysql.ErrCodeUnsupportedExpression:
			return ErrCodeUnsupportedExpr
		case querysql.ErrCodeInvalidQuery:
			return ErrCodeInvalidQuery
		}
	}
	return ErrCodeGeneric
}

// ErrorMessage returns the message to show for err without its code prefix.
func ErrorMessage(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			return fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), loadErr.Message)
		}
		return loadErr.Message
	}
	return err.Error()
}
