package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

// writeChatScenario writes a one-step scenario against the shared chat
// schema into dir.
func writeChatScenario(t *testing.T, dir, name, expectOutput string) {
	t.Helper()
	schema, err := filepath.Abs(chatSchema)
	require.NoError(t, err)
	content := "name: " + name + "\n" +
		"description: \"single classify call\"\n" +
		"schema: " + schema + "\n" +
		"flow:\n" +
		"  - invoke: Classify\n" +
		"    args:\n" +
		"      msg: {sender: USER, text: hi}\n" +
		"    expect:\n" +
		"      output: " + expectOutput + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0644))
}

func TestTestCommandArgs(t *testing.T) {
	_, _, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)

	_, _, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)

	out, _, err = execute(t, NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)
	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandRunsScenarios(t *testing.T) {
	out, _, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--parallel", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ classify_resolution")
	assert.Contains(t, out, "✓ failures")
	assert.Contains(t, out, "✓ templates")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, _, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenariosDir, "--filter", "fail*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "failures", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.Positive(t, resp.Data.Scenarios[0].Calls)
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeChatScenario(t, dir, "wrong", "ASSISTANT")

	out, _, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, `expected output "ASSISTANT", got "USER"`)
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")

	out, _, err = execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommandGoldenFiles(t *testing.T) {
	dir := t.TempDir()
	writeChatScenario(t, dir, "golden_classify", "USER")
	golden := goldenFilePath(dir, "golden_classify")
	assert.Equal(t, filepath.Join(dir, "golden", "golden_classify.golden"), golden)

	out, _, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ golden_classify (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "golden_classify"`)
	assert.Contains(t, string(data), `"record_id": "call-0001"`)

	// A rerun reproduces the same trace.
	_, _, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0644))
	out, _, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}
