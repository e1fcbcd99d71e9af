package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
)

// LogsEnabled reports whether ASSETGRID_TEST_LOGS asks for captured logs to
// be echoed through t.Logf.
func LogsEnabled() bool {
	return os.Getenv("ASSETGRID_TEST_LOGS") == "true"
}

// Context returns a context carrying a debug-level text logger that writes
// into a SafeBuffer. The buffer is dumped at cleanup when LogsEnabled.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() {
		if LogsEnabled() {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	return ctxlog.WithLogger(context.Background(), logger), buf
}
