package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatSchemaDir returns the absolute path of the shared chat schema.
func chatSchemaDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs("../../testdata/schema/chat")
	require.NoError(t, err)
	return dir
}

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
schema: `+chatSchemaDir(t)+`
timeout: 250ms
overrides:
  Classify: b
flow:
  - invoke: Classify
    args:
      msg: {sender: USER, text: hi}
    variant: a
    timeout: 1s
    expect:
      output: USER
assertions:
  - type: trace_count
    function: Classify
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, 250*time.Millisecond, scenario.Timeout)
	assert.Equal(t, map[string]string{"Classify": "b"}, scenario.Overrides)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "Classify", scenario.Flow[0].Invoke)
	assert.Equal(t, "a", scenario.Flow[0].Variant)
	assert.Equal(t, time.Second, scenario.Flow[0].Timeout)
	assert.Equal(t, "USER", scenario.Flow[0].Expect.Output)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_ResolvesSchemaRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "schema"), 0755))
	path := writeScenario(t, dir, "rel.yaml", `
name: rel
description: "relative schema"
schema: schema
flow:
  - invoke: F
    args: {}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schema"), scenario.Schema)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "schemas", "chat"), 0755))
	path := writeScenario(t, t.TempDir(), "based.yaml", `
name: based
description: "schema relative to a base path"
schema: schemas/chat
flow:
  - invoke: F
    args: {}
`)

	scenario, err := LoadScenarioWithBasePath(path, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "schemas", "chat"), scenario.Schema)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", `
name: typo
description: "typo in assertions key"
schema: `+chatSchemaDir(t)+`
flow:
  - invoke: Classify
    args: {}
assertion:
  - type: trace_count
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	schema := chatSchemaDir(t)
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nschema: " + schema + "\nflow: [{invoke: F, args: {}}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nschema: " + schema + "\nflow: [{invoke: F, args: {}}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing schema",
			content: "name: n\ndescription: d\nflow: [{invoke: F, args: {}}]\n",
			wantErr: "schema is required",
		},
		{
			name:    "schema not found",
			content: "name: n\ndescription: d\nschema: /does/not/exist\nflow: [{invoke: F, args: {}}]\n",
			wantErr: "schema not found",
		},
		{
			name:    "empty flow",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: []\n",
			wantErr: "flow list is required",
		},
		{
			name:    "missing invoke",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: [{args: {}}]\n",
			wantErr: "flow[0]: invoke is required",
		},
		{
			name:    "missing args",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: [{invoke: F}]\n",
			wantErr: "flow[0]: args is required",
		},
		{
			name:    "bad outcome",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: [{invoke: F, args: {}, expect: {outcome: done}}]\n",
			wantErr: "outcome must be",
		},
		{
			name:    "error kind on completed",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: [{invoke: F, args: {}, expect: {outcome: completed, error_kind: TIMEOUT}}]\n",
			wantErr: "error_kind requires outcome",
		},
		{
			name:    "output on failed",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: [{invoke: F, args: {}, expect: {error_kind: TIMEOUT, output: x}}]\n",
			wantErr: "output requires outcome",
		},
		{
			name:    "negative timeout",
			content: "name: n\ndescription: d\nschema: " + schema + "\ntimeout: -1s\nflow: [{invoke: F, args: {}}]\n",
			wantErr: "timeout must be non-negative",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: [{invoke: F, args: {}}]\nassertions: [{type: final_state}]\n",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "trace_order without functions",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: [{invoke: F, args: {}}]\nassertions: [{type: trace_order}]\n",
			wantErr: "functions list is required",
		},
		{
			name:    "record_counts without expect",
			content: "name: n\ndescription: d\nschema: " + schema + "\nflow: [{invoke: F, args: {}}]\nassertions: [{type: record_counts}]\n",
			wantErr: "expect is required for record_counts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios(t *testing.T) {
	dir := t.TempDir()
	schema := chatSchemaDir(t)
	for _, name := range []string{"b_second", "a_first", "c_other"} {
		writeScenario(t, dir, name+".yaml", "name: "+name+"\ndescription: d\nschema: "+schema+"\nflow: [{invoke: F, args: {}}]\n")
	}
	writeScenario(t, dir, "notes.txt", "not a scenario")

	all, err := LoadScenarios(dir, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a_first", all[0].Name)
	assert.Equal(t, "b_second", all[1].Name)

	some, err := LoadScenarios(dir, "*_f*")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "a_first", some[0].Name)

	_, err = LoadScenarios(dir, "[")
	assert.ErrorContains(t, err, "invalid filter")
}

func TestLoadScenarios_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	schema := chatSchemaDir(t)
	for _, file := range []string{"one.yaml", "two.yml"} {
		writeScenario(t, dir, file, "name: same\ndescription: d\nschema: "+schema+"\nflow: [{invoke: F, args: {}}]\n")
	}

	_, err := LoadScenarios(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "same" already used`)
}
