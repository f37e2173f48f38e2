// Package rewrite implements the command that turns an image reference into
// proxy-targeted pull commands and URLs.
package rewrite

import (
	"context"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/regproxy/regproxy/pkg/cmdhelper"
	"github.com/regproxy/regproxy/pkg/commands/internal/options"
	"github.com/regproxy/regproxy/pkg/errdefs"
	"github.com/regproxy/regproxy/pkg/refname"
	"github.com/regproxy/regproxy/pkg/rewrite"
)

// New creates a new Command.
func New() *Command {
	return &Command{
		RewriteOptions: options.NewRewriteOptions(),
	}
}

// Command rewrites an image reference against the configured proxy host.
type Command struct {
	RewriteOptions *options.RewriteOptions
}

// ToCLI transforms to a *cli.Command.
func (c *Command) ToCLI() *cli.Command {
	return &cli.Command{
		Name:    "rewrite",
		Aliases: []string{"rw"},
		Usage:   "Rewrite an image reference into proxy pull commands and URLs",
		UsageText: `regproxy rewrite [OPTIONS] [IMAGE]

# Rewrite a reference against the proxy host
$ regproxy rewrite --proxy-host proxy.internal:5000 nginx:1.27

# Prompt for the reference interactively
$ regproxy rewrite --proxy-host proxy.internal:5000

# Emit the bundle as JSON
$ regproxy rewrite --proxy-host proxy.internal:5000 --format json alpine@sha256:abcd
`,
		Flags:  c.Flags(),
		Before: cli.BeforeFunc(cmdhelper.MaximumNArgs(1)),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *Command) Flags() []cli.Flag {
	return c.RewriteOptions.Flags()
}

// Run is the main function for the current command.
func (c *Command) Run(_ context.Context, cmd *cli.Command) error {
	parseOpts := []refname.Option{}
	if ns := c.RewriteOptions.DefaultNamespace; ns != "" {
		parseOpts = append(parseOpts, refname.WithDefaultNamespace(ns))
	}

	input := cmd.Args().First()
	if input == "" {
		prompted, err := c.prompt(parseOpts)
		if err != nil {
			return err
		}
		input = prompted
	}

	ref, err := refname.Parse(input, parseOpts...)
	if err != nil {
		return err
	}
	bundle, err := rewrite.Synthesize(ref, c.RewriteOptions.ProxyHost, c.RewriteOptions.Scheme)
	if err != nil {
		return err
	}
	return c.write(cmd, bundle)
}

// prompt asks for an image reference interactively, validating as the user
// types.
func (c *Command) prompt(parseOpts []refname.Option) (string, error) {
	prompt := promptui.Prompt{
		Label: "Image reference",
		Validate: func(input string) error {
			_, err := refname.Parse(input, parseOpts...)
			return err
		},
	}
	return prompt.Run()
}

func (c *Command) write(cmd *cli.Command, bundle rewrite.OutputBundle) error {
	switch strings.ToLower(c.RewriteOptions.Format) {
	case "json":
		data, err := cmdhelper.PrettifyJSON(bundle)
		if err != nil {
			return err
		}
		cmdhelper.Fprintf(cmd.Writer, "%s", string(data))
	case "yaml", "yml":
		data, err := yaml.Marshal(bundle)
		if err != nil {
			return err
		}
		cmdhelper.Fprintf(cmd.Writer, "%s", string(data))
	case "", "text":
		cmdhelper.Fprintf(cmd.Writer, "Pull command:\n  %s\n", bundle.PullCommand)
		cmdhelper.Fprintf(cmd.Writer, "V2 probe URL:\n  %s\n", bundle.V2ProbeURL)
		cmdhelper.Fprintf(cmd.Writer, "Manifest URL:\n  %s\n", bundle.ManifestURL)
		cmdhelper.Fprintf(cmd.Writer, "Verify:")
		for _, example := range bundle.VerificationExamples {
			cmdhelper.Fprintf(cmd.Writer, "  %s", example)
		}
	default:
		return errdefs.Newf(errdefs.ErrInvalidParameter,
			"unsupported format %q, expect oneof [text, json, yaml]", c.RewriteOptions.Format)
	}
	return nil
}
