// Package options defines the flag sets shared by the regproxy commands.
package options

import (
	"github.com/urfave/cli/v3"
)

// NewCommonOptions returns a *CommonOptions with default values.
func NewCommonOptions() *CommonOptions {
	return &CommonOptions{}
}

// CommonOptions are options that are common to all commands.
type CommonOptions struct {
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// Flags returns the []cli.Flag related to current options.
func (o *CommonOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Sources:     cli.EnvVars("REGPROXY_DEBUG"),
			Usage:       "enable debug mode",
			Destination: &o.Debug,
		},
	}
}
