package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajaimes/cinnamon/internal/config"
	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

func analyzeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Show how a request path is analyzed and resolved",
		Example: `  cinnamon analyze /Greeter/hello
  cinnamon analyze --slugs /greeter/say-hi/42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			reg, err := opts.registry()
			if err != nil {
				return err
			}

			d := opts.diagnostics(cmd)
			d.Header("analyze " + args[0])

			target, err := cinnamon.Analyze(cfg.Dispatch.RelativePath(args[0]), cfg.Dispatch.UseSlugs)
			if err != nil {
				d.Check(false, "analyze: %v", err)
				return err
			}

			handler := cfg.Dispatch.Qualify(target.ClassName())
			d.Summary("Route", map[string]any{
				"class":   target.ClassName(),
				"method":  target.MethodName(),
				"params":  strings.Join(target.Params(), ", "),
				"handler": handler,
			})

			if _, err := reg.Resolve(handler, target.MethodName()); err != nil {
				d.Check(false, "resolve: %v", err)
				return err
			}
			d.Check(true, "resolves to %s.%s", handler, target.MethodName())
			return nil
		},
	}

	addDispatchFlags(cmd.Flags())
	return cmd
}
