// Package rewrite renders a parsed image reference into pull commands and
// registry API v2 URLs targeted at a proxy host.
package rewrite

import (
	"fmt"
	stdurl "net/url"
	"strings"

	"github.com/regproxy/regproxy/pkg/errdefs"
	"github.com/regproxy/regproxy/pkg/refname"
	"github.com/regproxy/regproxy/pkg/registry"
)

const (
	// DefaultScheme is used when the caller does not supply a scheme.
	DefaultScheme = "https"
)

// OutputBundle is the full set of strings rendered for one reference. Either
// the whole bundle is produced or an error is returned, never a partial one.
type OutputBundle struct {
	// PullCommand pulls the image through the proxy by tag. Pull-by-digest is
	// not rendered here; callers wanting a digest fetch use ManifestURL.
	PullCommand string `json:"pull_command" yaml:"pull_command"`

	// V2ProbeURL is the registry API v2 base endpoint on the proxy, used to
	// verify connectivity and auth before attempting a pull.
	V2ProbeURL string `json:"v2_probe_url" yaml:"v2_probe_url"`

	// ManifestURL fetches the manifest for this specific image and reference.
	// The digest replaces the tag as the reference segment when present.
	ManifestURL string `json:"manifest_url" yaml:"manifest_url"`

	// VerificationExamples are illustrative commands parameterized only by
	// the URLs above.
	VerificationExamples []string `json:"verification_examples" yaml:"verification_examples"`
}

// Synthesize renders the output bundle for ref against the given proxy host
// and scheme. The proxy host is required; the scheme defaults to "https".
func Synthesize(ref refname.ImageReference, proxyHost, scheme string) (OutputBundle, error) {
	var zero OutputBundle
	if proxyHost == "" {
		return zero, errdefs.Newf(errdefs.ErrInvalidParameter, "proxy host is not configured")
	}
	if scheme == "" {
		scheme = DefaultScheme
	}

	reference := ref.Tag()
	if dgst := ref.Digest(); dgst != "" {
		reference = dgst
	}

	probeURL := fmt.Sprintf("%s://%s/v2/", scheme, proxyHost)
	manifestURL := fmt.Sprintf("%s://%s/v2/%s/manifests/%s",
		scheme, proxyHost, encodePath(ref.Repository()), stdurl.PathEscape(reference))

	return OutputBundle{
		PullCommand: fmt.Sprintf("docker pull %s/%s:%s", proxyHost, ref.Repository(), ref.Tag()),
		V2ProbeURL:  probeURL,
		ManifestURL: manifestURL,
		VerificationExamples: []string{
			fmt.Sprintf("curl -fsS %s", probeURL),
			fmt.Sprintf("curl -fsS -H 'Accept: %s' %s", registry.MediaTypeDockerManifest, manifestURL),
		},
	}, nil
}

// encodePath percent-encodes each path segment independently, preserving the
// "/" separators between segments.
func encodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = stdurl.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
