package appinfo

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, "dev", v.Version)
	assert.Equal(t, runtime.Version(), v.Build.GoVersion)
	assert.Contains(t, v.Build.Platform, "/")
}

func TestShortVersion(t *testing.T) {
	assert.Equal(t, "dev", ShortVersion())
}

func TestVersionWriter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	err := NewVersionWriter(GetVersion()).SetAppName("regproxy").Write(buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Application  : regproxy")
	assert.Contains(t, buf.String(), "Version      : dev")
	assert.Contains(t, buf.String(), "[Build]")
}

func TestVersionWriter_Short(t *testing.T) {
	buf := &bytes.Buffer{}
	err := NewVersionWriter(Version{Version: "v1.2.3", Git: GitInfo{Commit: "abc1234"}}).
		SetShort(true).
		Write(buf)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3 (abc1234)\n", buf.String())
}

func TestVersionWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	err := NewVersionWriter(GetVersion()).SetFormat("json").Write(buf)
	require.NoError(t, err)

	var v Version
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	assert.Equal(t, "dev", v.Version)
}

func TestVersionWriter_YAML(t *testing.T) {
	buf := &bytes.Buffer{}
	err := NewVersionWriter(GetVersion()).SetFormat("yaml").Write(buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "version: dev"))
}
