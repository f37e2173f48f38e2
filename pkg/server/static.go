package server

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/regproxy/regproxy/pkg/util/xhttp"
	"github.com/regproxy/regproxy/pkg/xlog"
)

// streamThreshold is the file size above which responses are streamed
// instead of buffered.
const streamThreshold int64 = 1 << 20 // 1 MiB

// allowedExtensions whitelists what the static handler will ever serve.
var allowedExtensions = map[string]bool{
	".html":  true,
	".css":   true,
	".js":    true,
	".mjs":   true,
	".json":  true,
	".png":   true,
	".jpg":   true,
	".jpeg":  true,
	".gif":   true,
	".svg":   true,
	".ico":   true,
	".webp":  true,
	".woff":  true,
	".woff2": true,
	".ttf":   true,
	".txt":   true,
	".map":   true,
}

// handleStatic serves the web UI from the configured filesystem.
func (s *Server) handleStatic(c *gin.Context) {
	if s.static == nil || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		c.Status(http.StatusNotFound)
		return
	}
	name := strings.TrimPrefix(c.Request.URL.Path, "/")
	if name == "" {
		name = "index.html"
	}

	// traversal guard
	clean := path.Clean(name)
	if clean != name || strings.HasPrefix(clean, "..") || strings.Contains(clean, "../") {
		c.Status(http.StatusBadRequest)
		return
	}

	ext := strings.ToLower(path.Ext(clean))
	if !allowedExtensions[ext] {
		c.Status(http.StatusNotFound)
		return
	}

	file, err := s.static.Open(clean)
	if err != nil {
		if os.IsNotExist(err) {
			c.Status(http.StatusNotFound)
			return
		}
		xlog.C(c.Request.Context()).Error("open static file failed", "file", clean, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer xhttp.CloseAndSkipError(file)

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		c.Status(http.StatusNotFound)
		return
	}
	size := info.Size()

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Accept-Ranges", "bytes")

	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		br, ok := xhttp.ParseRangeHeader(rangeHeader, size)
		if !ok {
			c.Header("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		c.Header("Content-Range", br.ContentRange(size))
		c.Header("Content-Length", strconv.FormatInt(br.Length(), 10))
		c.Status(http.StatusPartialContent)
		if c.Request.Method == http.MethodHead {
			return
		}
		if _, err := file.Seek(br.Start, io.SeekStart); err != nil {
			return
		}
		_, _ = io.CopyN(c.Writer, file, br.Length())
		return
	}

	c.Header("Content-Length", strconv.FormatInt(size, 10))
	c.Status(http.StatusOK)
	if c.Request.Method == http.MethodHead {
		return
	}
	if size > streamThreshold {
		_, _ = io.Copy(c.Writer, file)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return
	}
	_, _ = c.Writer.Write(data)
}
