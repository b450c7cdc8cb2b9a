package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	topologyLock   bool
	topologyUnlock bool
	topologyRoute  []string
)

var topologyCmd = &cobra.Command{
	Use:   "topology <path>...",
	Short: "Lock or unlock paths and show the resulting topology",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTopology,
}

func init() {
	topologyCmd.Flags().BoolVar(&topologyLock, "lock", false, "lock the paths")
	topologyCmd.Flags().BoolVar(&topologyUnlock, "unlock", false, "unlock the paths")
	topologyCmd.Flags().StringSliceVar(&topologyRoute, "route", nil, "source,destination to route after the update")
	topologyCmd.MarkFlagsMutuallyExclusive("lock", "unlock")
	topologyCmd.MarkFlagsOneRequired("lock", "unlock")
	rootCmd.AddCommand(topologyCmd)
}

func runTopology(cmd *cobra.Command, args []string) error {
	if len(topologyRoute) != 0 && len(topologyRoute) != 2 {
		return fmt.Errorf("--route takes source,destination")
	}
	p, err := loadPlanner()
	if err != nil {
		return err
	}
	if err := p.Routing.SetPathsLocked(args, topologyLock); err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(topologyRoute) == 0 {
		printPaths(w, p.Plant)
		return nil
	}
	routes, err := p.Routing.ComputeRoutes("", topologyRoute[0], topologyRoute[1:], nil)
	if err != nil {
		return err
	}
	printRoutes(w, topologyRoute[0], routes)
	return nil
}
