// Package main is the entry of the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/regproxy/regproxy/pkg/cmdhelper"
	"github.com/regproxy/regproxy/pkg/commands"
	"github.com/regproxy/regproxy/pkg/commands/rewrite"
	"github.com/regproxy/regproxy/pkg/commands/server"
)

func main() {
	app := cli.Command{
		Name:                  "regproxy",
		Usage:                 "regproxy rewrites image references and proxies registry pulls",
		Suggest:               true,
		EnableShellCompletion: true,
		HideVersion:           true,
		HideHelpCommand:       true,
		Commands: []*cli.Command{
			commands.NewVersionCommand().ToCLI(),
			rewrite.New().ToCLI(),
			server.New().ToCLI(),
		},
		ExitErrHandler: func(ctx context.Context, c *cli.Command, err error) {
			cli.HandleExitCoder(err)
			cmdhelper.Fprintf(c.ErrWriter, "Error: %+v\n", err)
			os.Exit(1)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	//nolint:errcheck // already checked in root command ExitErrHandler
	_ = app.Run(ctx, os.Args)
}
