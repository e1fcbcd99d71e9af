package clear

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgridgo/internal/testutil"
	"github.com/specialistvlad/assetgridgo/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunClear(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"dist/index.html":     "x",
		"dist/assets/app.css": "y",
		"src/index.html":      "z",
	})

	_, err := OnRunClear(ctx, &transform.Request{Task: "clear", Root: root, Output: filepath.Join(root, "dist")})

	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(root, "dist"))
	assert.FileExists(t, filepath.Join(root, "src", "index.html"))

	// A second run on a missing output is fine.
	_, err = OnRunClear(ctx, &transform.Request{Task: "clear", Root: root, Output: filepath.Join(root, "dist")})
	assert.NoError(t, err)
}

func TestOnRunClear_Refuses(t *testing.T) {
	root := t.TempDir()
	testCases := []struct {
		name   string
		output string
	}{
		{"empty", ""},
		{"root itself", root},
		{"outside root", filepath.Dir(root)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			_, err := OnRunClear(ctx, &transform.Request{Root: root, Output: tc.output})
			require.Error(t, err)
			_, statErr := os.Stat(root)
			assert.NoError(t, statErr)
		})
	}
}

func TestOnRunClear_RejectsOptions(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"dist/a.txt": "a"})

	_, err := OnRunClear(ctx, &transform.Request{
		Root:    root,
		Output:  filepath.Join(root, "dist"),
		Options: testutil.Options(t, map[string]any{"keep": []any{"a.txt"}}),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported option 'keep'")
	assert.FileExists(t, filepath.Join(root, "dist", "a.txt"))
}
