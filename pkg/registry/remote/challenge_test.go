package remote

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChallenge(t *testing.T) {
	testCases := []struct {
		header string
		want   Challenge
	}{
		{
			header: "",
			want:   Challenge{Scheme: SchemeUnknown},
		},
		{
			header: "Basic",
			want:   Challenge{Scheme: SchemeBasic},
		},
		{
			header: `Basic realm="Test Registry"`,
			want: Challenge{
				Scheme:     SchemeBasic,
				Parameters: map[string]string{"realm": "Test Registry"},
			},
		},
		{
			header: "Bearer",
			want:   Challenge{Scheme: SchemeBearer},
		},
		{
			header: `Bearer realm="https://ghcr.io/token",service="ghcr.io",scope="repository:owner/app:pull"`,
			want: Challenge{
				Scheme: SchemeBearer,
				Parameters: map[string]string{
					"realm":   "https://ghcr.io/token",
					"service": "ghcr.io",
					"scope":   "repository:owner/app:pull",
				},
			},
		},
		{
			// quoted values may contain commas
			header: `Bearer realm="https://auth.example.io/token",scope="repository:library/hello-world:pull,push"`,
			want: Challenge{
				Scheme: SchemeBearer,
				Parameters: map[string]string{
					"realm": "https://auth.example.io/token",
					"scope": "repository:library/hello-world:pull,push",
				},
			},
		},
		{
			// unquoted values and spaces around separators are tolerated
			header: `Bearer realm = https://auth.example.io/token , service = registry.example.io`,
			want: Challenge{
				Scheme: SchemeBearer,
				Parameters: map[string]string{
					"realm":   "https://auth.example.io/token",
					"service": "registry.example.io",
				},
			},
		},
		{
			header: "Negotiate",
			want:   Challenge{Scheme: SchemeUnknown},
		},
	}
	for i, tc := range testCases {
		t.Run(fmt.Sprintf("%02d_%s", i, tc.header), func(t *testing.T) {
			got := ParseChallenge(tc.header)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSchemeString(t *testing.T) {
	assert.Equal(t, "Basic", SchemeBasic.String())
	assert.Equal(t, "Bearer", SchemeBearer.String())
	assert.Equal(t, "Unknown", SchemeUnknown.String())
}
