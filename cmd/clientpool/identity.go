package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.eggybyte.com/clientpool/core/identity"
	"go.eggybyte.com/clientpool/core/log"
)

func newIdentityCmd(a *app) *cobra.Command {
	var sf selectorFlags

	cmd := &cobra.Command{
		Use:   "identity [--proxy URL | --env-proxy] URL...",
		Short: "Print the network identity of each URL",
		Long: `Print the network identity of each URL.

Each line holds the identity, the route it was derived from (proxy
passwords masked) and the URL. URLs with equal identities share a
client.

Example:
  clientpool identity https://api.example.com/a https://api.example.com/b`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := sf.selector()
			if err != nil {
				return err
			}
			targets, err := parseTargets(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, target := range targets {
				route := identity.ResolveRoute(sel, target)
				fmt.Fprintf(out, "%s %s %s\n", route.ID, route.Redacted(), target.Redacted())
			}
			a.logger.Debug("identities resolved", log.Int("count", len(targets)))
			return nil
		},
	}

	sf.register(cmd)
	return cmd
}
