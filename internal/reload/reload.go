// Package reload tells connected browsers about finished runs.
package reload

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/fsutil"
	"github.com/specialistvlad/assetgridgo/internal/scheduler"
)

// Event names understood by the browser client.
const (
	EventReload = "reload"
	EventInject = "inject"
)

// Kind classifies the notification sent for an outcome.
type Kind int

const (
	KindNone Kind = iota
	KindInject
	KindReload
)

func (k Kind) String() string {
	switch k {
	case KindInject:
		return EventInject
	case KindReload:
		return EventReload
	default:
		return "none"
	}
}

// Message is the payload of both events.
type Message struct {
	Tasks []string `json:"tasks"`
	// Paths are the stylesheets to swap, relative to the served directory.
	// Empty means every stylesheet on the page.
	Paths []string `json:"paths,omitempty"`
}

// Publisher delivers an event to every connected client and returns how
// many received it.
type Publisher interface {
	Publish(event string, payload any) int
}

// Classifier reports whether a set of tasks only touches stylesheets.
type Classifier interface {
	StyleOnly(names ...string) bool
}

// Broadcaster turns outcomes into client notifications.
type Broadcaster struct {
	classifier Classifier
	publisher  Publisher
	served     string
}

// New creates a broadcaster. served is the directory the dev server exposes;
// injected stylesheet paths are made relative to it.
func New(classifier Classifier, publisher Publisher, served string) *Broadcaster {
	return &Broadcaster{classifier: classifier, publisher: publisher, served: served}
}

// Notify sends the notification for a run of the completed tasks and
// returns what was sent. A failed outcome is never broadcast.
func (b *Broadcaster) Notify(ctx context.Context, completed []string, out scheduler.Outcome) Kind {
	logger := ctxlog.FromContext(ctx).With("run_id", out.RunID, "tasks", completed)

	if !out.Succeeded() {
		for _, cause := range scheduler.Flatten(out.Err) {
			logger.Error("Task failed, browsers not notified.", "error", cause)
		}
		return KindNone
	}

	msg := Message{Tasks: completed}
	kind := KindReload
	if b.classifier.StyleOnly(completed...) {
		kind = KindInject
		msg.Paths = b.stylesheets(out.Outputs)
	}

	n := b.publisher.Publish(kind.String(), msg)
	logger.Info("📣 Notified browsers.", "kind", kind.String(), "clients", n)
	return kind
}

func (b *Broadcaster) stylesheets(outputs []string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, o := range outputs {
		if !strings.EqualFold(filepath.Ext(o), ".css") {
			continue
		}
		rel, ok := fsutil.Rel(b.served, o)
		if !ok || seen[rel] {
			continue
		}
		seen[rel] = true
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths
}
