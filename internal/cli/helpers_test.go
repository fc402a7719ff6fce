package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// chatSchema is the shared CUE schema under testdata/schema/chat.
var chatSchema = filepath.Join("..", "..", "testdata", "schema", "chat")

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeIR writes a JSON IR document and returns its path.
func writeIR(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// invalidIR compiles (it is plain JSON) but fails validation twice: an
// undefined output type and a prompt placeholder naming no parameter.
const invalidIR = `{
  "types": [],
  "functions": [
    {"name": "Summarize", "params": [{"name": "text", "type": "string"}], "output": "Summary"}
  ],
  "variants": [
    {"function": "Summarize", "id": "v1", "config": {"prompt": "{#input.body}"}}
  ]
}`
