package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typefn/internal/ir"
)

func TestLoadDirChat(t *testing.T) {
	result, errs := LoadDir("testdata/chat", LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.FileCount)
	assert.True(t, result.CUEValue.Exists())

	schema := result.Schema
	require.Len(t, schema.Types, 2)
	assert.Equal(t, "Sender", schema.Types[0].Name)
	assert.Equal(t, "Message", schema.Types[1].Name)

	require.Len(t, schema.Functions, 2)
	names := []string{schema.Functions[0].Name, schema.Functions[1].Name}
	assert.ElementsMatch(t, []string{"Simplify", "Classify"}, names)

	require.Len(t, schema.Variants, 3)
	assert.Empty(t, Validate(schema))
}

func TestLoadDirCollectAll(t *testing.T) {
	result, errs := LoadDir("testdata/broken", LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, errs, 2)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrInvalidTypeExpr, le.Code)
	assert.True(t, le.Pos.IsValid(), "compile errors keep their CUE position")
	assert.Contains(t, le.Error(), "schema.cue")

	require.ErrorAs(t, errs[1], &le)
	assert.Equal(t, ErrMissingRequired, le.Code)

	// Everything that compiled is still returned.
	require.Len(t, result.Schema.Types, 1)
	require.Len(t, result.Schema.Functions, 1)
	assert.Equal(t, "Fine", result.Schema.Functions[0].Name)
}

func TestLoadDirFailFast(t *testing.T) {
	_, errs := LoadDir("testdata/broken", LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadDirErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing", "testdata/nope", ErrCodeNotFound},
		{"not a directory", "testdata/chat/types.cue", ErrCodeNotFound},
		{"no cue files", "testdata/empty", ErrCodeNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errs := LoadDir(tt.dir, LoadModeFailFast)
			assert.Nil(t, result)
			require.Len(t, errs, 1)

			var le *LoadError
			require.ErrorAs(t, errs[0], &le)
			assert.Equal(t, tt.code, le.Code)
		})
	}
}

func TestLoadIR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	doc := `{
		"types": [{"kind": "enum", "name": "Sender", "values": [{"name": "USER"}]}],
		"functions": [{"name": "Classify", "params": [{"name": "msg", "type": "string"}], "output": "Sender"}],
		"variants": [{"function": "Classify", "id": "a", "config": {"client": "static"}, "default": true}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	schema, err := LoadIR(path)
	require.NoError(t, err)
	assert.Equal(t, "Sender", schema.Functions[0].Output.String())
	assert.Equal(t, ir.IRString("static"), schema.Variants[0].Config["client"])

	result, errs := Load(path, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, *schema, result.Schema)
}

func TestLoadIRErrors(t *testing.T) {
	_, err := LoadIR(filepath.Join(t.TempDir(), "missing.json"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"functions": [{"output": "Item["}]}`), 0o644))
	_, err = LoadIR(bad)
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeLoadFailed, le.Code)
}

func TestLoadRejectsOtherFiles(t *testing.T) {
	_, errs := Load("testdata/chat/types.cue", LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "CUE directory or a .json file")
}

func TestFindCUEFiles(t *testing.T) {
	files, err := FindCUEFiles("testdata/chat")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
