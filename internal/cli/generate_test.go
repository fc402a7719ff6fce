package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGoToStdout(t *testing.T) {
	out, _, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), chatSchema, "--package", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "// Code generated by typefn. DO NOT EDIT.")
	assert.Contains(t, out, "package chat")
	assert.Contains(t, out, "type Sender string")
	assert.Contains(t, out, "type ClassifyArgs struct")
	assert.Contains(t, out, "// Who wrote a message")
}

func TestGenerateTypeScriptToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.ts")

	out, _, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), chatSchema, "--lang", "ts", "-o", path, "--comments=false")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote "+path+" (ts, ")

	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(src), "export interface Message")
	assert.NotContains(t, string(src), "Who wrote a message")
}

func TestGenerateJSONIncludesSource(t *testing.T) {
	out, _, err := execute(t, NewGenerateCommand(&RootOptions{Format: "json"}), chatSchema, "--lang", "ts")
	require.NoError(t, err)

	var resp struct {
		Data GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ts", resp.Data.Language)
	assert.Equal(t, len(resp.Data.Source), resp.Data.Bytes)
	assert.Empty(t, resp.Data.File)
}

func TestGenerateErrors(t *testing.T) {
	_, _, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), chatSchema, "--lang", "rust")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unsupported language "rust"`)

	_, _, err = execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), writeIR(t, invalidIR))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
