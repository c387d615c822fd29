package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"autoportal/pkg/guard"
	"autoportal/pkg/resolver"
	"autoportal/pkg/role"
	"autoportal/pkg/shell"
)

type page struct {
	rule *guard.Rule
	// api is fetched and printed once the page renders.
	api string
}

var adminRule = &guard.Rule{AllowedRoles: []role.Role{role.Admin}, Fallback: "/"}

var pages = map[string]page{
	"/":              {},
	"/services":      {},
	"/about":         {},
	"/contact":       {},
	"/faq":           {},
	"/login":         {},
	"/dashboard":     {rule: &guard.Rule{}, api: "/api/dashboard"},
	"/admin":         {rule: adminRule, api: "/api/admin/stats"},
	"/admin/clients": {rule: adminRule, api: "/api/admin/clients"},
	"/admin/repairs": {rule: adminRule, api: "/api/admin/repairs"},
}

func pagePaths() []string {
	paths := make([]string, 0, len(pages))
	for p := range pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open a portal page through the role guard",
		Long:  "open evaluates the page's access rule for the saved session and either prints the page data or the redirect the portal would perform.\n\nPages: " + strings.Join(pagePaths(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			p, ok := pages[path]
			if !ok {
				return fmt.Errorf("unknown page %q", path)
			}

			out := cmd.OutOrStdout()
			if p.rule == nil {
				fmt.Fprintf(out, "decision: %s\n", guard.Render)
				return nil
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			res := resolver.New(a.client, a.logger, resolver.WithTimeout(a.timeout()))
			defer res.Close()
			sh := shell.New(a.client, res, guard.New(guard.DefaultPaths()), a.logger)
			defer sh.Close()

			if err := sh.Start(ctx); err != nil {
				return fmt.Errorf("start session: %w", err)
			}
			d, err := sh.Await(ctx, *p.rule)
			if err != nil {
				return fmt.Errorf("resolve role: %w", err)
			}
			if st := res.State(); st.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: role lookup failed: %v\n", st.Err)
			}

			if d.Redirect() {
				fmt.Fprintf(out, "decision: %s %s\n", d.Kind, d.Path)
				return nil
			}
			fmt.Fprintf(out, "decision: %s\n", d.Kind)
			if d.Kind != guard.Render || p.api == "" {
				return nil
			}

			var data json.RawMessage
			if err := a.client.Get(ctx, p.api, &data); err != nil {
				return fmt.Errorf("fetch %s: %w", p.api, err)
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, data, "", "  "); err != nil {
				return fmt.Errorf("format %s: %w", p.api, err)
			}
			fmt.Fprintln(out, pretty.String())
			return nil
		},
	}
}
