package registry

import "strings"

// V2EndpointKind enumerates the server-side v2 endpoints the proxy serves.
type V2EndpointKind int

const (
	// V2EndpointUnknown is an unknown or unsupported endpoint.
	V2EndpointUnknown V2EndpointKind = iota
	// V2EndpointManifest is GET/HEAD /v2/{name}/manifests/{reference}.
	V2EndpointManifest
	// V2EndpointBlob is GET/HEAD /v2/{name}/blobs/{digest}.
	V2EndpointBlob
	// V2EndpointBlobUploadInit is POST /v2/{name}/blobs/uploads/.
	V2EndpointBlobUploadInit
	// V2EndpointBlobUploadComplete is PUT /v2/{name}/blobs/uploads/{session}.
	V2EndpointBlobUploadComplete
)

// V2Endpoint is a parsed /v2/ request path. Name may contain slashes and may
// embed an upstream host prefix, e.g. "ghcr.io/owner/repo".
type V2Endpoint struct {
	Kind V2EndpointKind
	// Name is the repository name.
	Name string
	// Reference is the tag or digest for manifest endpoints.
	Reference string
	// Digest is the content digest for blob endpoints, verbatim.
	Digest string
	// Session is the upload session id for upload-complete endpoints.
	Session string
}

// ParseV2Path parses the path after "/v2/", e.g.
// "library/ubuntu/manifests/latest". Repository names may contain slashes, so
// the keywords "manifests" and "blobs" anchor the split.
func ParseV2Path(rest string) V2Endpoint {
	rest = strings.Trim(rest, "/")
	parts := strings.Split(rest, "/")

	if i := indexOf(parts, "manifests"); i > 0 && i+1 < len(parts) {
		return V2Endpoint{
			Kind:      V2EndpointManifest,
			Name:      strings.Join(parts[:i], "/"),
			Reference: parts[i+1],
		}
	}

	if i := indexOf(parts, "blobs"); i > 0 {
		if i+2 < len(parts) && parts[i+1] == "uploads" {
			return V2Endpoint{
				Kind:    V2EndpointBlobUploadComplete,
				Name:    strings.Join(parts[:i], "/"),
				Session: parts[i+2],
			}
		}
		if i+2 == len(parts) && parts[i+1] == "uploads" {
			return V2Endpoint{
				Kind: V2EndpointBlobUploadInit,
				Name: strings.Join(parts[:i], "/"),
			}
		}
		if i+1 < len(parts) {
			return V2Endpoint{
				Kind:   V2EndpointBlob,
				Name:   strings.Join(parts[:i], "/"),
				Digest: parts[i+1],
			}
		}
	}

	return V2Endpoint{Kind: V2EndpointUnknown}
}

func indexOf(parts []string, keyword string) int {
	for i, p := range parts {
		if p == keyword {
			return i
		}
	}
	return -1
}
