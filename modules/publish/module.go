// Package publish uploads built files to an HTTP endpoint that accepts PUT,
// such as an object store bucket behind pre-signed or token authenticated
// URLs.
package publish

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/transform"
)

// Name is the transform name used in pipeline files.
const Name = "publish"

// Module implements the transform.Module interface for this package.
type Module struct {
	// Client overrides the HTTP client, mostly for tests.
	Client *http.Client
}

// Input declares the options of a publish task.
type Input struct {
	// URL is the destination prefix. Required.
	URL string `cty:"url"`
	// Headers are extra request headers, e.g. authorization.
	Headers map[string]string `cty:"headers"`
	// Timeout bounds each upload. Empty means no limit.
	Timeout string `cty:"timeout"`
}

// Run PUTs every input to url + its path relative to the request base.
// Uploads are sequential and stop at the first failure. Success is any 2xx
// status.
func (m *Module) Run(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	logger := ctxlog.FromContext(ctx).With("transform", Name, "task", req.Task)

	var opts Input
	if err := req.Decode(&opts); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(opts.URL, "/")
	if prefix == "" {
		return nil, fmt.Errorf("option 'url' is required")
	}
	timeout, err := transform.Duration("timeout", opts.Timeout, 0)
	if err != nil {
		return nil, err
	}
	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	res := &transform.Result{}
	for _, in := range req.Inputs {
		base := req.Base
		if base == "" {
			base = filepath.Dir(in)
		}
		rel, err := filepath.Rel(base, in)
		if err != nil {
			return nil, err
		}
		url := prefix + "/" + filepath.ToSlash(rel)
		if err := upload(ctx, client, in, url, opts.Headers); err != nil {
			return nil, err
		}
		logger.Debug("Uploaded file.", "source", in, "url", url)
	}
	logger.Info("📦 Published files.", "count", len(req.Inputs), "url", prefix)
	return res, nil
}

func upload(ctx context.Context, client *http.Client, path, url string, headers map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file '%s': %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file stats for '%s': %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.ContentLength = stat.Size()

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload '%s': %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload of '%s' failed with status: %s", path, resp.Status)
	}
	return nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *transform.Registry) {
	r.Register(Name, transform.Func(m.Run))
}
