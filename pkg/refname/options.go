package refname

func makeOptions(opts ...Option) options {
	opt := options{
		defaultTag: DefaultTag,
	}
	for _, o := range opts {
		o(&opt)
	}
	return opt
}

type options struct {
	defaultTag       string
	defaultNamespace string
}

// Option is a functional option for reference parsing.
type Option func(*options)

// WithDefaultTag sets the default tag that will be used if one is not
// provided. If not set, "latest" will be used as default.
func WithDefaultTag(tag string) Option {
	return func(o *options) {
		o.defaultTag = tag
	}
}

// WithDefaultNamespace sets the namespace prefixed to bare single-segment
// repository names, e.g. "library" rewrites "nginx" to "library/nginx".
// Whether the prefix is wanted depends on how the proxy backend resolves
// names, so it is off by default.
func WithDefaultNamespace(namespace string) Option {
	return func(o *options) {
		o.defaultNamespace = namespace
	}
}
