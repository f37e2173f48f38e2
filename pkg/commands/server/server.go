// Package server implements the command that runs the registry proxy.
package server

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/regproxy/regproxy/pkg/cmdhelper"
	"github.com/regproxy/regproxy/pkg/commands/internal/options"
	"github.com/regproxy/regproxy/pkg/config"
	"github.com/regproxy/regproxy/pkg/proxy"
	"github.com/regproxy/regproxy/pkg/registry/remote"
	"github.com/regproxy/regproxy/pkg/server"
	"github.com/regproxy/regproxy/pkg/xlog"
)

// New creates a new Command.
func New() *Command {
	return &Command{
		CommonOptions: options.NewCommonOptions(),
		ServerOptions: options.NewServerOptions(),
	}
}

// Command is a command to start the registry proxy server.
type Command struct {
	CommonOptions *options.CommonOptions
	ServerOptions *options.ServerOptions
}

// ToCLI transforms to a *cli.Command.
func (c *Command) ToCLI() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"srv"},
		Usage:   "Start the registry proxy server",
		UsageText: `regproxy server [OPTIONS]

# Start the server with default port 8080
$ regproxy server

# Start the server with a configuration file
$ regproxy server --config /etc/regproxy.yaml

# Start the server with custom port
$ regproxy server --port 9000
`,
		Flags:  c.Flags(),
		Before: cli.BeforeFunc(cmdhelper.NoArgs()),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *Command) Flags() []cli.Flag {
	flags := []cli.Flag{}
	flags = append(flags, c.CommonOptions.Flags()...)
	flags = append(flags, c.ServerOptions.Flags()...)
	return flags
}

// Run is the main function for the current command.
func (c *Command) Run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := c.setupLogging(cfg)
	if err != nil {
		return err
	}
	xlog.SetDefault(logger)

	srv := server.New(cfg, c.serverOptions(cfg)...)

	cmdhelper.Fprintf(cmd.Writer, "Server started at http://%s\n", cfg.Server.Addr())
	cmdhelper.Fprintf(cmd.Writer, "Press Ctrl+C to stop the server\n")
	return srv.Run(ctx)
}

// loadConfig merges the configuration file, when given, with the command
// line flags. Flags changed by the user win over file values.
func (c *Command) loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if c.ServerOptions.ConfigFile != "" {
		loaded, err := config.Load(afero.NewOsFs(), c.ServerOptions.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if cmd.IsSet("host") || c.ServerOptions.ConfigFile == "" {
		cfg.Server.Host = c.ServerOptions.Host
	}
	if cmd.IsSet("port") || c.ServerOptions.ConfigFile == "" {
		cfg.Server.Port = int(c.ServerOptions.Port)
	}
	if c.CommonOptions.Debug {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

func (c *Command) setupLogging(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	logCfg := xlog.NewConfig()
	logCfg.Level = level
	logCfg.Path = cfg.Log.Path
	return xlog.New(logCfg), nil
}

func (c *Command) serverOptions(cfg config.Config) []server.Option {
	client := remote.NewClient(
		remote.WithUserAgent("regproxy"),
		remote.WithAuthProvider(authProvider(cfg)),
	)
	p := proxy.New(
		proxy.WithClient(client),
		proxy.WithDefaultRegistry(cfg.Proxy.DefaultRegistry),
		proxy.WithDefaultNamespace(cfg.Proxy.DefaultNamespace),
	)
	opts := []server.Option{server.WithProxy(p)}
	if dir := c.ServerOptions.StaticDir; dir != "" {
		opts = append(opts, server.WithStaticFS(afero.NewBasePathFs(afero.NewOsFs(), dir)))
	}
	return opts
}

// authProvider maps configured credentials to upstream hosts.
func authProvider(cfg config.Config) remote.AuthProvider {
	return func(_ context.Context, host string) remote.AuthConfig {
		if host == "ghcr.io" && cfg.Auth.GHCRToken != "" {
			return remote.AuthConfig{RegistryToken: cfg.Auth.GHCRToken}
		}
		return remote.AuthConfig{}
	}
}
