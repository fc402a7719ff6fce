package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListText(t *testing.T) {
	out, _, err := execute(t, NewListCommand(&RootOptions{Format: "text"}), chatSchema)
	require.NoError(t, err)

	assert.Equal(t, `Simplify(msg: Message) -> string
  v1 [template] (default)
Classify(msg: Message) -> Sender
  a [static] (default)
  b [static]
  down [fault]
  bad [static]
Greet(name: string) -> string
  plain [template] (default)
  personal [template]
`, out)
}

func TestListJSON(t *testing.T) {
	out, _, err := execute(t, NewListCommand(&RootOptions{Format: "json"}), chatSchema)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   []FunctionListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)

	greet := resp.Data[2]
	assert.Equal(t, "Greet", greet.Name)
	assert.Equal(t, []VariantListing{
		{ID: "plain", Client: "template", Default: true},
		{ID: "personal", Client: "template"},
	}, greet.Variants)
}

func TestListRejectsInvalidSchema(t *testing.T) {
	out, _, err := execute(t, NewListCommand(&RootOptions{Format: "text"}), writeIR(t, invalidIR))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [UNKNOWN_TYPE]")
}
