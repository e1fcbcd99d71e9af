package devserver

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// ClientPath is where the reload client script is served.
const ClientPath = "/__assetgrid/reload.js"

// Snippet is inserted into every served HTML page.
const Snippet = `<script src="/socket.io/socket.io.js"></script><script src="` + ClientPath + `"></script>`

// InjectSnippet inserts the reload snippet before the last </body>, or
// appends it when the page has none.
func InjectSnippet(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte(nil), page...), Snippet...)
	}
	out := make([]byte, 0, len(page)+len(Snippet))
	out = append(out, page[:idx]...)
	out = append(out, Snippet...)
	out = append(out, page[idx:]...)
	return out
}

// staticHandler serves files from root, injecting the snippet into HTML.
type staticHandler struct {
	root  http.FileSystem
	files http.Handler
}

func newStaticHandler(dir string) *staticHandler {
	root := http.Dir(dir)
	return &staticHandler{root: root, files: http.FileServer(root)}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}
	if !strings.EqualFold(path.Ext(name), ".html") && !strings.EqualFold(path.Ext(name), ".htm") {
		h.files.ServeHTTP(w, r)
		return
	}

	f, err := h.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to open file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		// Directories named *.html fall back to the file server.
		h.files.ServeHTTP(w, r)
		return
	}
	page, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(InjectSnippet(page)))
}
