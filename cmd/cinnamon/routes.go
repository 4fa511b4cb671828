package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ajaimes/cinnamon/internal/config"
	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

func routesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List registered handlers and the URLs that reach them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			reg, err := opts.registry()
			if err != nil {
				return err
			}

			routes := reg.Routes()
			rows := make([][]string, 0, len(routes))
			failed := 0
			for _, r := range routes {
				status := "ok"
				switch {
				case r.Err != nil:
					status = "error: " + r.Err.Error()
					failed++
				case !r.Dispatchable:
					status = "not dispatchable"
				}
				rows = append(rows, []string{routeURL(cfg.Dispatch, r), r.Handler, r.Action, formatParameters(r.Parameters), status})
			}

			d := opts.diagnostics(cmd)
			d.Header("routes")
			d.Table([]string{"URL", "HANDLER", "ACTION", "PARAMETERS", "STATUS"}, rows)
			d.Summary("Summary", map[string]any{
				"handlers": len(reg.Names()),
				"actions":  len(routes),
				"failed":   failed,
			})

			if failed > 0 {
				return errors.Errorf("%d actions failed to compile", failed)
			}
			return nil
		},
	}

	addDispatchFlags(cmd.Flags())
	return cmd
}

// routeURL renders the URL that reaches r, or "-" when the handler lives
// outside the controller package
func routeURL(cfg cinnamon.Config, r cinnamon.RouteInfo) string {
	class := r.Handler
	if cfg.ControllerPackage != "" {
		var ok bool
		if class, ok = strings.CutPrefix(r.Handler, cfg.ControllerPackage+"."); !ok {
			return "-"
		}
	}

	action := r.Action
	if cfg.UseSlugs {
		class, action = slugify(class), slugify(action)
	}

	url := path.Join("/", cfg.MountPrefix, class, action)
	for _, slot := range strings.Split(r.Mapping, "/") {
		if slot != "" {
			url += "/{" + slot + "}"
		}
	}
	return url
}

// slugify turns "HelloWorld" or "sayHi" into "hello-world" or "say-hi"
func slugify(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func formatParameters(params []cinnamon.ParameterInfo) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		part := fmt.Sprintf("%s %s", p.Name, p.Type)
		if p.Required {
			part += "!"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
