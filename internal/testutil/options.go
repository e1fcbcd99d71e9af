package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Options builds a task options object the way the JSON pipeline syntax
// would evaluate it. A nil map is an empty object.
func Options(t *testing.T, opts map[string]any) cty.Value {
	t.Helper()
	if opts == nil {
		return cty.EmptyObjectVal
	}
	raw, err := json.Marshal(opts)
	require.NoError(t, err)
	ty, err := ctyjson.ImpliedType(raw)
	require.NoError(t, err)
	val, err := ctyjson.Unmarshal(raw, ty)
	require.NoError(t, err)
	return val
}
