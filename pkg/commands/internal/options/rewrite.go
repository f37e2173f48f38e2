package options

import (
	"github.com/urfave/cli/v3"
)

// RewriteFlagCategory is the category of the rewrite flags.
const RewriteFlagCategory = "[Rewrite]"

// NewRewriteOptions returns a new *RewriteOptions with default values.
func NewRewriteOptions() *RewriteOptions {
	return &RewriteOptions{
		Scheme: "https",
		Format: "text",
	}
}

// RewriteOptions defines the options for the rewrite command.
type RewriteOptions struct {
	// ProxyHost is the host[:port] of the proxy the outputs target.
	ProxyHost string

	// Scheme is the URL scheme used in the rendered URLs.
	Scheme string

	// DefaultNamespace, when set, prefixes bare single-segment names,
	// e.g. "library".
	DefaultNamespace string

	// Format selects the output rendering, oneof ["text", "json", "yaml"].
	Format string
}

// Flags returns the []cli.Flag related to current options.
func (o *RewriteOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "proxy-host",
			Usage:       "proxy host the rendered commands and URLs point at",
			Sources:     cli.EnvVars("REGPROXY_HOST"),
			Destination: &o.ProxyHost,
			Category:    RewriteFlagCategory,
		},
		&cli.StringFlag{
			Name:        "scheme",
			Usage:       "URL scheme for the rendered URLs",
			Sources:     cli.EnvVars("REGPROXY_SCHEME"),
			Value:       o.Scheme,
			Destination: &o.Scheme,
			Category:    RewriteFlagCategory,
		},
		&cli.StringFlag{
			Name:        "default-namespace",
			Usage:       `namespace prefixed onto bare image names, e.g. "library"`,
			Sources:     cli.EnvVars("REGPROXY_DEFAULT_NAMESPACE"),
			Destination: &o.DefaultNamespace,
			Category:    RewriteFlagCategory,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       `output format, oneof ["text", "json", "yaml"]`,
			Value:       o.Format,
			Destination: &o.Format,
			Category:    RewriteFlagCategory,
		},
	}
}
