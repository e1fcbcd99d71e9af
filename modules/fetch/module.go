// Package fetch downloads remote files, such as vendored libraries or web
// fonts, into the output directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/transform"
)

// Name is the transform name used in pipeline files.
const Name = "fetch"

// DefaultTimeout bounds a single download when no timeout option is set.
const DefaultTimeout = 30 * time.Second

// Module implements the transform.Module interface for this package.
type Module struct {
	// Client overrides the HTTP client, mostly for tests.
	Client *http.Client
}

// newClient builds a client with pooled connections.
func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Input declares the options of a fetch task.
type Input struct {
	// Files maps a path inside the output directory to a URL. Required.
	Files map[string]string `cty:"files"`
	// Timeout bounds each download, DefaultTimeout when empty.
	Timeout string `cty:"timeout"`
}

// Run downloads every entry of the files option. Entries are fetched in path order. Any status other than 200 fails the
// task.
func (m *Module) Run(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	logger := ctxlog.FromContext(ctx).With("transform", Name, "task", req.Task)
	if req.Output == "" {
		return nil, fmt.Errorf("no output configured")
	}
	var opts Input
	if err := req.Decode(&opts); err != nil {
		return nil, err
	}
	files := opts.Files
	if len(files) == 0 {
		return nil, fmt.Errorf("option 'files' is required")
	}
	timeout, err := transform.Duration("timeout", opts.Timeout, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	client := m.Client
	if client == nil {
		client = newClient(timeout)
		defer client.CloseIdleConnections()
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &transform.Result{}
	for _, name := range names {
		url := files[name]
		dst := filepath.Join(req.Output, filepath.FromSlash(name))
		if err := download(ctx, client, url, dst); err != nil {
			return nil, fmt.Errorf("fetching '%s': %w", url, err)
		}
		logger.Debug("Downloaded file.", "url", url, "path", dst)
		res.Outputs = append(res.Outputs, dst)
	}
	return res, nil
}

func download(ctx context.Context, client *http.Client, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// Register registers the transform with the registry.
func (m *Module) Register(r *transform.Registry) {
	r.Register(Name, transform.Func(m.Run))
}
