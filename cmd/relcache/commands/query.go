package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.trai.ch/relcache/internal/app"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/engine/view"
	"go.trai.ch/relcache/internal/ui/output"
	"go.trai.ch/relcache/internal/ui/style"
	"go.trai.ch/zerr"
)

func (c *CLI) newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read views from the cache",
	}
	cmd.PersistentFlags().Bool("sync", false, "Run every agent once before reading")
	cmd.PersistentFlags().Bool("json", false, "Print the result as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "clusters <application>",
		Short: "Show the clusters of an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clusters, err := c.app.Clusters(cmd.Context(), queryOptions(cmd), args[0])
			if err != nil {
				return err
			}
			return render(cmd, clusters, func(p *printer) { p.clusters(clusters) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "application <application>",
		Short: "Show the summary of an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := c.app.Application(cmd.Context(), queryOptions(cmd), args[0])
			if err != nil {
				return err
			}
			if application == nil {
				return zerr.With(zerr.Wrap(domain.ErrNotCached, "cannot show application"), "application", args[0])
			}
			return render(cmd, application, func(p *printer) { p.application(application) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "instance <account> <region> <name>",
		Short: "Show one instance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := c.app.Instance(cmd.Context(), queryOptions(cmd), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if instance == nil {
				return zerr.With(zerr.Wrap(domain.ErrNotCached, "cannot show instance"), "instance", strings.Join(args, "/"))
			}
			return render(cmd, instance, func(p *printer) { p.instance(*instance, "") })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "keys <type> <pattern>",
		Short: "List the cached ids of a type matching a pattern such as serverGroups:acct1:*:*",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := c.app.Keys(cmd.Context(), queryOptions(cmd), args[0], args[1])
			if err != nil {
				return err
			}
			return render(cmd, keys, func(p *printer) {
				for _, k := range keys {
					p.line(k)
				}
			})
		},
	})

	return cmd
}

func queryOptions(cmd *cobra.Command) app.QueryOptions {
	sync, _ := cmd.Flags().GetBool("sync")
	return app.QueryOptions{ConfigPath: configPath(cmd), Sync: sync}
}

// render writes v as indented JSON with --json, otherwise through the printer.
func render(cmd *cobra.Command, v any, human func(*printer)) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	p := newPrinter(out)
	human(p)
	return p.err
}

type printer struct {
	w        io.Writer
	err      error
	renderer *lipgloss.Renderer
	heading  lipgloss.Style
	muted    lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := output.Renderer(w)
	return &printer{
		w:        w,
		renderer: r,
		heading:  r.NewStyle().Foreground(style.Iris).Bold(true),
		muted:    r.NewStyle().Foreground(style.Slate),
	}
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) clusters(clusters []view.Cluster) {
	for _, cl := range clusters {
		p.line(p.heading.Render(cl.Name) + " " + p.muted.Render(cl.Account))
		for _, lb := range cl.LoadBalancers {
			p.line("  " + style.Tilde + " " + lb.Name + " " + p.muted.Render(lb.Region))
		}
		for _, sg := range cl.ServerGroups {
			p.line("  " + style.Dot + " " + sg.Name + " " + p.muted.Render(sg.Region))
			for _, inst := range sg.Instances {
				p.instance(inst, "      ")
			}
		}
	}
}

func (p *printer) application(a *view.Application) {
	p.line(p.heading.Render(a.Name))
	p.line(fmt.Sprintf("  server groups: %d", a.ServerGroups))
	p.line(fmt.Sprintf("  load balancers: %d", a.LoadBalancers))
	accounts := make([]string, 0, len(a.Clusters))
	for account := range a.Clusters {
		accounts = append(accounts, account)
	}
	slices.Sort(accounts)
	for _, account := range accounts {
		p.line("  " + account + ": " + strings.Join(a.Clusters[account], ", "))
	}
}

func (p *printer) instance(inst view.Instance, indent string) {
	icon, color := style.Health(inst.Health)
	health := p.renderer.NewStyle().Foreground(color)
	line := indent + health.Render(icon) + " " + inst.Name
	if inst.Health != "" {
		line += " " + health.Render(inst.Health)
	}
	p.line(line)
}
