package cli

import (
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/typefn/internal/compiler"
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/registry"
)

// loadSchema loads the schema at path, reporting fatal load problems through
// formatter. A nil result means the caller should return the error as is.
func loadSchema(formatter *OutputFormatter, path string, mode compiler.LoadMode) (*compiler.LoadResult, []error, error) {
	result, errs := compiler.Load(path, mode)
	if result == nil && len(errs) > 0 {
		code, message, _ := parseLoadError(errs[0])
		_ = formatter.Error(code, message, nil)
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}
	formatter.VerboseLog("Loaded %d file(s) from %s", result.FileCount, path)
	return result, errs, nil
}

// loadRegistry loads and builds the schema at path. Any load or build error
// is a command error: callers that want every problem listed use validate.
func loadRegistry(formatter *OutputFormatter, path string) (*compiler.LoadResult, *registry.Registry, error) {
	result, errs, err := loadSchema(formatter, path, compiler.LoadModeFailFast)
	if err != nil {
		return nil, nil, err
	}
	if len(errs) > 0 {
		code, message, _ := parseLoadError(errs[0])
		_ = formatter.Error(code, message, nil)
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}

	reg, err := registry.Build(result.Schema)
	if err != nil {
		code := "E_BUILD"
		if errors.IsBuildError(err) {
			code = string(errors.KindOf(err))
		}
		_ = formatter.Error(code, err.Error(), nil)
		return nil, nil, WrapExitError(ExitCommandError, "failed to build registry", err)
	}
	formatter.VerboseLog("Built registry %s", reg.Hash)
	return result, reg, nil
}

// parseLoadError extracts error code, message and CUE position from an error.
func parseLoadError(err error) (string, string, token.Pos) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return compiler.MapFieldToErrorCode(compileErr.Field), compileErr.Message, compileErr.Pos
	}
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message, loadErr.Pos
	}
	return compiler.ErrCodeGeneric, err.Error(), token.NoPos
}
