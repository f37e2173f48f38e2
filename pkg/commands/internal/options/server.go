package options

import (
	"fmt"

	"github.com/urfave/cli/v3"
)

const (
	// ServerFlagCategory is the category of the server flags.
	ServerFlagCategory = "[Server]"

	// DefaultServerPort is the default port for the server to listen on.
	DefaultServerPort int64 = 8080

	// DefaultServerHost is the default host for the server to listen on.
	DefaultServerHost = "0.0.0.0"
)

// NewServerOptions returns a new *ServerOptions with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		Port: DefaultServerPort,
		Host: DefaultServerHost,
	}
}

// ServerOptions defines the options for the server.
type ServerOptions struct {
	// Port is the port for the server to listen on.
	Port int64

	// Host is the host for the server to listen on.
	Host string

	// ConfigFile is the path to the YAML configuration file.
	ConfigFile string

	// StaticDir is the directory holding the web UI assets.
	StaticDir string
}

// Flags returns the []cli.Flag related to current options.
func (o *ServerOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "port",
			Aliases:     []string{"p"},
			Usage:       "port to listen on",
			Sources:     cli.EnvVars("REGPROXY_SERVER_PORT"),
			Value:       o.Port,
			Destination: &o.Port,
			Category:    ServerFlagCategory,
		},
		&cli.StringFlag{
			Name:        "host",
			Usage:       "host to listen on",
			Sources:     cli.EnvVars("REGPROXY_SERVER_HOST"),
			Value:       o.Host,
			Destination: &o.Host,
			Category:    ServerFlagCategory,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to the configuration file",
			Sources:     cli.EnvVars("REGPROXY_CONFIG"),
			Destination: &o.ConfigFile,
			Category:    ServerFlagCategory,
		},
		&cli.StringFlag{
			Name:        "static-dir",
			Usage:       "directory with the web UI assets",
			Sources:     cli.EnvVars("REGPROXY_STATIC_DIR"),
			Destination: &o.StaticDir,
			Category:    ServerFlagCategory,
		},
	}
}

// Address returns the server address format as host:port.
func (o *ServerOptions) Address() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}
