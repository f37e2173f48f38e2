package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/regproxy/regproxy/pkg/errdefs"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	sub := New().ToCLI()
	sub.Writer = buf
	root := &cli.Command{
		Name:     "regproxy",
		Writer:   buf,
		Commands: []*cli.Command{sub},
	}
	err := root.Run(context.Background(), append([]string{"regproxy", "rewrite"}, args...))
	return buf.String(), err
}

func TestRunText(t *testing.T) {
	out, err := runCommand(t, "--proxy-host", "proxy.internal:5000", "nginx:1.27")
	require.NoError(t, err)
	assert.Contains(t, out, "docker pull proxy.internal:5000/nginx:1.27")
	assert.Contains(t, out, "https://proxy.internal:5000/v2/")
	assert.Contains(t, out, "https://proxy.internal:5000/v2/nginx/manifests/1.27")
	assert.Contains(t, out, "curl -fsS")
}

func TestRunJSON(t *testing.T) {
	out, err := runCommand(t, "--proxy-host", "proxy.internal:5000", "--format", "json", "alpine@sha256:abcd")
	require.NoError(t, err)

	var bundle struct {
		PullCommand string `json:"pull_command"`
		ManifestURL string `json:"manifest_url"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &bundle))
	assert.Equal(t, "docker pull proxy.internal:5000/alpine:latest", bundle.PullCommand)
	assert.Equal(t, "https://proxy.internal:5000/v2/alpine/manifests/sha256:abcd", bundle.ManifestURL)
}

func TestRunDefaultNamespace(t *testing.T) {
	out, err := runCommand(t, "--proxy-host", "p.io", "--default-namespace", "library", "nginx")
	require.NoError(t, err)
	assert.Contains(t, out, "docker pull p.io/library/nginx:latest")
}

func TestRunMissingProxyHost(t *testing.T) {
	_, err := runCommand(t, "nginx")
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrInvalidParameter)
}

func TestRunBadReference(t *testing.T) {
	_, err := runCommand(t, "--proxy-host", "p.io", ":tag")
	require.Error(t, err)
}

func TestRunTooManyArgs(t *testing.T) {
	_, err := runCommand(t, "--proxy-host", "p.io", "nginx", "alpine")
	require.Error(t, err)
}

func TestRunBadFormat(t *testing.T) {
	_, err := runCommand(t, "--proxy-host", "p.io", "--format", "xml", "nginx")
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrInvalidParameter)
}
