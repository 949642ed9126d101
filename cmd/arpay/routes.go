package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vitwit/arpay/networks"
	"github.com/vitwit/arpay/routing"
	"github.com/vitwit/arpay/types"
)

var routesFrom string

func init() {
	routesCmd.Flags().StringVar(&routesFrom, "from", "", "only routes leaving this chain")
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(feeCmd)
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List supported cross-chain routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := routing.NewResolver(networks.DefaultRegistry(), routing.WithLogger(log))

		routes := resolver.Routes()
		if routesFrom != "" {
			routes = resolver.RoutesFrom(types.ChainID(routesFrom))
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tDESTINATION\tKIND")
		for _, r := range routes {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Source, r.Destination, r.Kind)
		}
		return w.Flush()
	},
}

var feeCmd = &cobra.Command{
	Use:   "fee <source> <destination>",
	Short: "Quote the router fee for a route",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := routing.NewResolver(networks.DefaultRegistry(), routing.WithLogger(log))
		src, dst := types.ChainID(args[0]), types.ChainID(args[1])
		if !resolver.IsRouteSupported(src, dst) {
			return types.NewError(types.ErrRouteNotSupported, "no route from %s to %s", src, dst)
		}
		fee, err := resolver.EstimateFee(ctx, src, dst)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", fee.Amount.String(), fee.Symbol, fee.Kind)
		return nil
	},
}
