package registry

import (
	imagespecv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	// MediaTypeDockerManifest is the media type of a docker schema2 manifest.
	MediaTypeDockerManifest = "application/vnd.docker.distribution.manifest.v2+json"

	// MediaTypeDockerManifestList is the media type of a docker schema2
	// manifest list.
	MediaTypeDockerManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"

	// DefaultMediaType is the media type used when the upstream does not
	// declare one.
	DefaultMediaType = "application/octet-stream"
)

// ManifestAcceptValues lists the manifest media types offered to upstreams
// when fetching a manifest, docker schema2 first for compatibility with older
// registries.
func ManifestAcceptValues() []string {
	return []string{
		MediaTypeDockerManifest,
		MediaTypeDockerManifestList,
		imagespecv1.MediaTypeImageManifest,
		imagespecv1.MediaTypeImageIndex,
	}
}
