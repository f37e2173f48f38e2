package refname_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regproxy/regproxy/pkg/refname"
)

func TestParse(t *testing.T) {
	testcases := []struct {
		input      string
		registry   string
		repository string
		tag        string
		digest     string
		wantErr    error
	}{
		{
			input:      "nginx",
			repository: "nginx",
			tag:        "latest",
		},
		{
			input:      "nginx:1.27",
			repository: "nginx",
			tag:        "1.27",
		},
		{
			input:      "library/nginx",
			repository: "library/nginx",
			tag:        "latest",
		},
		{
			input:      "myregistry.io:5000/team/app:v2.1",
			registry:   "myregistry.io:5000",
			repository: "team/app",
			tag:        "v2.1",
		},
		{
			input:      "host.example.com:5000/repo:tag",
			registry:   "host.example.com:5000",
			repository: "repo",
			tag:        "tag",
		},
		{
			input:      "localhost:5000/repo",
			registry:   "localhost:5000",
			repository: "repo",
			tag:        "latest",
		},
		{
			input:      "ghcr.io/owner/repo:v1.0.0",
			registry:   "ghcr.io",
			repository: "owner/repo",
			tag:        "v1.0.0",
		},
		{
			input:      "alpine@sha256:abcd1234",
			repository: "alpine",
			tag:        "latest",
			digest:     "sha256:abcd1234",
		},
		{
			input:      "alpine:3.20@sha256:abcd1234",
			repository: "alpine",
			tag:        "3.20",
			digest:     "sha256:abcd1234",
		},
		{
			// only the first "@" separates; the rest stays in the digest
			input:      "alpine@sha256:abcd@extra",
			repository: "alpine",
			tag:        "latest",
			digest:     "sha256:abcd@extra",
		},
		{
			// first segment without "." or ":" is a path component, not a host
			input:      "team/app",
			repository: "team/app",
			tag:        "latest",
		},
		{
			// surrounding whitespace is trimmed
			input:      "  nginx:stable  ",
			repository: "nginx",
			tag:        "stable",
		},
		{
			input:   "",
			wantErr: refname.ErrEmptyInput,
		},
		{
			input:   "   ",
			wantErr: refname.ErrEmptyInput,
		},
		{
			input:   ":tag",
			wantErr: refname.ErrBadName,
		},
		{
			input:   "nginx:",
			wantErr: refname.ErrBadName,
		},
		{
			input:   "/nginx",
			wantErr: refname.ErrBadName,
		},
		{
			input:   "nginx/",
			wantErr: refname.ErrBadName,
		},
		{
			input:   "host.io//repo",
			wantErr: refname.ErrBadName,
		},
		{
			input:   "@sha256:abcd1234",
			wantErr: refname.ErrBadName,
		},
	}

	for _, tc := range testcases {
		name := tc.input
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			got, err := refname.Parse(tc.input)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.registry, got.Registry())
			assert.Equal(t, tc.repository, got.Repository())
			assert.Equal(t, tc.tag, got.Tag())
			assert.Equal(t, tc.digest, got.Digest())
		})
	}
}

func TestParse_DefaultNamespace(t *testing.T) {
	got, err := refname.Parse("nginx", refname.WithDefaultNamespace("library"))
	require.NoError(t, err)
	assert.Equal(t, "library/nginx", got.Repository())
	assert.Equal(t, "latest", got.Tag())
	assert.Empty(t, got.Registry())

	// multi-segment names are left alone
	got, err = refname.Parse("team/app", refname.WithDefaultNamespace("library"))
	require.NoError(t, err)
	assert.Equal(t, "team/app", got.Repository())

	// so are names with an explicit registry
	got, err = refname.Parse("ghcr.io/app", refname.WithDefaultNamespace("library"))
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io", got.Registry())
	assert.Equal(t, "app", got.Repository())
}

func TestParse_DefaultTag(t *testing.T) {
	got, err := refname.Parse("nginx", refname.WithDefaultTag("stable"))
	require.NoError(t, err)
	assert.Equal(t, "stable", got.Tag())
}

func TestParse_NoDigestWithoutAt(t *testing.T) {
	for _, input := range []string{"nginx", "team/app:v1", "host.io:5000/repo:tag"} {
		got, err := refname.Parse(input)
		require.NoError(t, err)
		assert.Empty(t, got.Digest(), "input %q", input)
	}
}

func TestParse_Idempotent(t *testing.T) {
	first, err := refname.Parse("team/app:v1.2")
	require.NoError(t, err)

	second, err := refname.Parse(first.Repository() + ":" + first.Tag())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestImageReference_String(t *testing.T) {
	testcases := []struct {
		input string
		want  string
	}{
		{"nginx", "nginx:latest"},
		{"team/app:v1", "team/app:v1"},
		{"ghcr.io/owner/repo:v1.0.0", "ghcr.io/owner/repo:v1.0.0"},
		{"alpine@sha256:abcd", "alpine:latest@sha256:abcd"},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := refname.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestImageReference_Familiar(t *testing.T) {
	testcases := []struct {
		input string
		want  string
	}{
		{"nginx", "nginx"},
		{"nginx:latest", "nginx"},
		{"team/app:v1", "team/app:v1"},
		{"ghcr.io/owner/repo", "ghcr.io/owner/repo"},
		{"alpine@sha256:abcd", "alpine@sha256:abcd"},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := refname.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Familiar())
		})
	}
}
