package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcore/core/plant"
)

var plantCmd = &cobra.Command{
	Use:   "plant",
	Short: "Plant model related commands",
}

var plantLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List points, paths and vehicles",
	RunE:  runPlantLs,
}

func init() {
	plantCmd.AddCommand(plantLsCmd)
	rootCmd.AddCommand(plantCmd)
}

func runPlantLs(cmd *cobra.Command, args []string) error {
	p, err := loadPlanner()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, pt := range p.Plant.Points() {
		fmt.Fprintf(w, "point   %s\n", pt.Name)
	}
	printPaths(w, p.Plant)
	for _, v := range p.Plant.Vehicles() {
		fmt.Fprintf(w, "vehicle %s at %s\n", v.Name, v.InitialPosition)
	}
	return nil
}

func printPaths(w io.Writer, pm *plant.Model) {
	for _, pa := range pm.Paths() {
		state := ""
		if pa.Locked {
			state = " (locked)"
		}
		fmt.Fprintf(w, "path    %s %s->%s length %d%s\n", pa.Name, pa.Source, pa.Destination, pa.Length, state)
	}
}
