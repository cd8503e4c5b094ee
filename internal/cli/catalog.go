package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const tabPadding = 2

func newScenariosCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List climate scenarios",
		Long:  "List the SSP pathways in the catalog with their forcing and end-of-curve warming.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			scenarios := c.ListScenarios()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), scenarios)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(w, "ID\tLabel\tForcing\tCurve\tWarming")
			for _, s := range scenarios {
				last := s.WarmingCurve[len(s.WarmingCurve)-1]
				fmt.Fprintf(w, "%s\t%s\t%.1f W/m²\t%d-%d\t+%.1f°C\n",
					s.ID, s.Label, s.Forcing, s.FirstYear(), s.LastYear(), last.AnomalyC)
			}
			return w.Flush()
		},
	}
}

func newRegionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			regions := c.ListRegions()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), regions)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(w, "ID\tName\tTemp\tPrecip\tAridity\tCrops")
			for _, r := range regions {
				fmt.Fprintf(w, "%s\t%s\t%.1f°C\t%.0f mm\t%s\t%s\n",
					r.ID, r.Name, r.MeanTemperatureC, r.MeanPrecipitationMM, r.Aridity, strings.Join(r.Crops, ","))
			}
			return w.Flush()
		},
	}
}

func newCropsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "crops",
		Short: "List crops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			crops := c.ListCrops()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), crops)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(w, "ID\tName\tTemp sens\tPrecip sens\tOptimal temp\tOptimal precip")
			for _, cr := range crops {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.0f-%.0f°C\t%.0f-%.0f mm\n",
					cr.ID, cr.Name, cr.TemperatureSensitivity, cr.PrecipitationSensitivity,
					cr.OptimalTemperature.Min, cr.OptimalTemperature.Max,
					cr.OptimalPrecipitation.Min, cr.OptimalPrecipitation.Max)
			}
			return w.Flush()
		},
	}
}
