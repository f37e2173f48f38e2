package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regproxy/regproxy/pkg/xlog"
)

func newTestLogger(buf *bytes.Buffer, format string) *slog.Logger {
	c := xlog.NewConfig()
	c.AddSource = false
	c.StdFormat = format
	c.StdWriter = buf
	return xlog.New(c)
}

func TestLoggerText(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, "text")

	logger.Info("hello", "key", "value")
	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "key=value")
}

func TestLoggerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, "json")

	logger.Warn("something", "count", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "something", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.EqualValues(t, 3, record["count"])
}

func TestLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, "text")

	logger.Debug("invisible")
	assert.Empty(t, buf.String())
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf, "text")

	ctx := context.Background()
	assert.Same(t, xlog.Default(), xlog.FromContext(ctx))

	old := xlog.Default()
	defer xlog.SetDefault(old)
	xlog.SetDefault(logger)

	ctx = xlog.WithContext(ctx, "request_id", "abc123")
	xlog.C(ctx).Info("with context")
	assert.Contains(t, buf.String(), "request_id=abc123")
}

func TestFileOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	c := xlog.NewConfig()
	c.AddSource = false
	c.StdWriter = buf
	c.Path = t.TempDir() + "/regproxy.log"

	logger := xlog.New(c)
	logger.Info("to both sinks")

	assert.True(t, strings.Contains(buf.String(), "to both sinks"))
}
