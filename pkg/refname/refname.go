// Package refname decomposes user-typed container image references into
// registry, repository, tag and digest components.
//
// The grammar is deliberately the permissive one users know from
// `docker pull`: the digest is everything after the first "@", a ":" after
// the last "/" separates the tag, and the first path segment is a registry
// host only when it contains a "." or ":". IPv6 host:port forms are not
// supported.
package refname

import (
	"strings"

	"github.com/regproxy/regproxy/pkg/errdefs"
)

const (
	// DefaultTag is the tag applied to references without an explicit tag.
	DefaultTag = "latest"
)

// ImageReference is an immutable decomposed image reference. The zero value
// is not valid; references are constructed by Parse.
type ImageReference struct {
	registry   string
	repository string
	tag        string
	digest     string
}

// Registry returns the explicit registry host, or "" when the input named no
// registry and the implicit default applies.
func (r ImageReference) Registry() string { return r.registry }

// Repository returns the repository path. Never empty for a parsed reference.
func (r ImageReference) Repository() string { return r.repository }

// Tag returns the tag, defaulted to "latest" when the input had none.
func (r ImageReference) Tag() string { return r.tag }

// Digest returns the content digest verbatim from after the first "@" in the
// input, or "" when the input had none. The digest is never validated.
func (r ImageReference) Digest() string { return r.digest }

// String renders the reference in pullable form,
// "[registry/]repository:tag[@digest]".
func (r ImageReference) String() string {
	s := r.repository + ":" + r.tag
	if r.registry != "" {
		s = r.registry + "/" + s
	}
	if r.digest != "" {
		s += "@" + r.digest
	}
	return s
}

// Familiar renders the shortest form users typically type: the default tag is
// omitted, the digest is kept.
func (r ImageReference) Familiar() string {
	s := r.repository
	if r.registry != "" {
		s = r.registry + "/" + s
	}
	if r.tag != "" && r.tag != DefaultTag {
		s += ":" + r.tag
	}
	if r.digest != "" {
		s += "@" + r.digest
	}
	return s
}

// Parse decomposes a raw user-typed image reference.
//
// Unusual-but-legal inputs are not errors: a bare name with no slash or tag
// parses with defaults applied. Only an empty input (ErrEmptyInput) and
// structurally malformed names such as ":tag", "nginx:" or a trailing "/"
// (ErrBadName) fail.
func Parse(input string, opts ...Option) (ImageReference, error) {
	o := makeOptions(opts...)
	var zero ImageReference

	working := strings.TrimSpace(input)
	if working == "" {
		return zero, errdefs.Newf(ErrEmptyInput, "non-empty reference is required")
	}

	// Everything after the first "@" is the digest, verbatim, including any
	// further "@" it may contain.
	var dgst string
	if before, after, ok := strings.Cut(working, "@"); ok {
		working, dgst = before, after
	}

	// A ":" strictly after the last "/" separates the tag. A ":" at or before
	// the last "/" is a registry port, not a tag separator.
	tag := o.defaultTag
	name := working
	lastSlash := strings.LastIndex(working, "/")
	if lastColon := strings.LastIndex(working, ":"); lastColon > lastSlash {
		name, tag = working[:lastColon], working[lastColon+1:]
		if tag == "" {
			return zero, errdefs.Newf(ErrBadName, "reference %q has an empty tag", input)
		}
	}

	registry := ""
	repository := name
	if i := strings.Index(name, "/"); i >= 0 {
		if first := name[:i]; strings.ContainsAny(first, ".:") {
			registry, repository = first, name[i+1:]
		}
	} else if repository != "" && o.defaultNamespace != "" {
		repository = o.defaultNamespace + "/" + repository
	}

	if repository == "" {
		return zero, errdefs.Newf(ErrBadName, "reference %q has no repository", input)
	}
	for _, segment := range strings.Split(repository, "/") {
		if segment == "" {
			return zero, errdefs.Newf(ErrBadName, "reference %q has an empty repository segment", input)
		}
	}

	return ImageReference{
		registry:   registry,
		repository: repository,
		tag:        tag,
		digest:     dgst,
	}, nil
}
