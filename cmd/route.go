package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcore/core/model"
)

var routeAvoid []string

var routeCmd = &cobra.Command{
	Use:   "route <vehicle|-> <source> <destination>...",
	Short: "Compute routes on the configured plant",
	Long:  "Compute routes for a plant vehicle. A vehicle of \"-\" routes on the general graph.",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().StringSliceVar(&routeAvoid, "avoid", nil, "resources to avoid, as point:NAME or path:NAME")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	avoid := make([]model.ResourceRef, 0, len(routeAvoid))
	for _, s := range routeAvoid {
		ref, err := model.ParseResourceRef(s)
		if err != nil {
			return err
		}
		avoid = append(avoid, ref)
	}
	p, err := loadPlanner()
	if err != nil {
		return err
	}
	vehicleName := args[0]
	if vehicleName == "-" {
		vehicleName = ""
	}
	routes, err := p.Routing.ComputeRoutes(vehicleName, args[1], args[2:], avoid)
	if err != nil {
		return err
	}
	printRoutes(cmd.OutOrStdout(), args[1], routes)
	return nil
}

func printRoutes(w io.Writer, source string, routes map[string]*model.Route) {
	dests := make([]string, 0, len(routes))
	for d := range routes {
		dests = append(dests, d)
	}
	sort.Strings(dests)
	for _, d := range dests {
		r := routes[d]
		switch {
		case r == nil:
			fmt.Fprintf(w, "%s -> %s: unreachable\n", source, d)
		case len(r.Steps) == 0:
			fmt.Fprintf(w, "%s -> %s: cost 0 (already there)\n", source, d)
		default:
			fmt.Fprintf(w, "%s -> %s: cost %d via %v\n", source, d, r.Cost, r.PointNames())
		}
	}
}
