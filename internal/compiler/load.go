package compiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// Load error codes, shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load or JSON decode failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading a schema.
type LoadResult struct {
	Schema    ir.Schema
	CUEValue  cue.Value // zero for JSON sources
	FileCount int
}

// LoadError represents an error that occurred during schema loading.
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

// Load reads a schema from path: a directory of CUE files, or a single
// .json IR document.
func Load(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema: %v", err)}}
	}
	if info.IsDir() {
		return LoadDir(path, mode)
	}
	if filepath.Ext(path) == ".json" {
		schema, err := LoadIR(path)
		if err != nil {
			return nil, []error{err}
		}
		return &LoadResult{Schema: *schema, FileCount: 1}, nil
	}
	return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema must be a CUE directory or a .json file: %s", path)}}
}

// LoadDir loads and compiles the CUE schema in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	schema, errs := CompileValue(value, mode)
	return &LoadResult{Schema: *schema, CUEValue: value, FileCount: len(cueFiles)}, errs
}

// CompileValue compiles the enum, class, function and impl sections of a
// built CUE value. The returned schema holds everything that compiled, even
// when errors are reported.
func CompileValue(value cue.Value, mode LoadMode) (*ir.Schema, []error) {
	schema := &ir.Schema{
		Types:     []ir.TypeDef{},
		Functions: []ir.FunctionContract{},
		Variants:  []ir.VariantDecl{},
	}
	var errs []error

	// each walks one top-level section; it reports false to stop early.
	each := func(section string, fn func(cue.Value) error) bool {
		sv := value.LookupPath(cue.ParsePath(section))
		if !sv.Exists() {
			return true
		}
		iter, err := sv.Fields()
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", section, err)})
			return mode != LoadModeFailFast
		}
		for iter.Next() {
			if err := fn(iter.Value()); err != nil {
				errs = append(errs, convertCompileError(err, section+"."+iter.Selector().String()))
				if mode == LoadModeFailFast {
					return false
				}
			}
		}
		return true
	}

	ok := each("enum", func(v cue.Value) error {
		def, err := CompileEnum(v)
		if err == nil {
			schema.Types = append(schema.Types, *def)
		}
		return err
	}) && each("class", func(v cue.Value) error {
		def, err := CompileClass(v)
		if err == nil {
			schema.Types = append(schema.Types, *def)
		}
		return err
	}) && each("function", func(v cue.Value) error {
		fn, err := CompileFunction(v)
		if err == nil {
			schema.Functions = append(schema.Functions, *fn)
		}
		return err
	}) && each("impl", func(v cue.Value) error {
		variants, err := CompileImpls(v)
		if err == nil {
			schema.Variants = append(schema.Variants, variants...)
		}
		return err
	})

	if ok && len(errs) == 0 && len(schema.Types) == 0 && len(schema.Functions) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no types or functions found in schema"})
	}
	return schema, errs
}

// LoadIR reads an already-compiled ir.Schema from a JSON file.
func LoadIR(path string) (*ir.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading schema: %v", err)}
	}
	var schema ir.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decoding %s: %v", path, err)}
	}
	return &schema, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// MapFieldToErrorCode maps a CompileError field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "enum", "class", "function", "impl", "name":
		return ErrInvalidName
	case "type":
		return ErrInvalidTypeExpr
	case "values", "output":
		return ErrMissingRequired
	case "default", "config":
		return ErrInvalidVariantConfig
	default:
		return ErrCodeGeneric
	}
}
