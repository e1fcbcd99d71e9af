package reload

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/assetgridgo/internal/registry"
	"github.com/specialistvlad/assetgridgo/internal/scheduler"
	"github.com/specialistvlad/assetgridgo/internal/task"
	"github.com/specialistvlad/assetgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	event   string
	payload any
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
}

func (f *fakePublisher) Publish(event string, payload any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{event, payload})
	return 1
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	leaf := task.NewLeaf(task.LeafSpec{Transform: "copy", Incremental: true})
	require.NoError(t, r.Define("styles", leaf.WithStyleOnly()))
	require.NoError(t, r.Define("vendor-styles", leaf.WithStyleOnly()))
	require.NoError(t, r.Define("scripts", leaf))
	return r
}

func TestNotify(t *testing.T) {
	served := t.TempDir()
	css := filepath.Join(served, "assets", "css", "app.css")

	testCases := []struct {
		name      string
		completed []string
		outcome   scheduler.Outcome
		wantKind  Kind
		wantSent  []published
	}{
		{
			name:      "style only run injects",
			completed: []string{"styles"},
			outcome:   scheduler.Outcome{Status: scheduler.Succeeded, Outputs: []string{css, css + ".map"}},
			wantKind:  KindInject,
			wantSent: []published{{EventInject, Message{
				Tasks: []string{"styles"},
				Paths: []string{"assets/css/app.css"},
			}}},
		},
		{
			name:      "several style tasks still inject",
			completed: []string{"styles", "vendor-styles"},
			outcome:   scheduler.Outcome{Status: scheduler.Succeeded},
			wantKind:  KindInject,
			wantSent:  []published{{EventInject, Message{Tasks: []string{"styles", "vendor-styles"}}}},
		},
		{
			name:      "mixed run reloads",
			completed: []string{"styles", "scripts"},
			outcome:   scheduler.Outcome{Status: scheduler.Succeeded, Outputs: []string{css}},
			wantKind:  KindReload,
			wantSent:  []published{{EventReload, Message{Tasks: []string{"styles", "scripts"}}}},
		},
		{
			name:      "failed run is never broadcast",
			completed: []string{"styles"},
			outcome: scheduler.Outcome{Status: scheduler.Failed, Err: &scheduler.TransformStepError{
				Task: "styles", Transform: "copy", Err: errors.New("boom"),
			}},
			wantKind: KindNone,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			pub := &fakePublisher{}
			b := New(newRegistry(t), pub, served)

			kind := b.Notify(ctx, tc.completed, tc.outcome)

			assert.Equal(t, tc.wantKind, kind)
			if diff := cmp.Diff(tc.wantSent, pub.sent, cmp.AllowUnexported(published{})); diff != "" {
				t.Errorf("published mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
