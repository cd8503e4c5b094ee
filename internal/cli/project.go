package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/baobab/internal/domain"
)

func newProjectCmd(opts *rootOptions) *cobra.Command {
	var (
		scenario string
		region   string
		crop     string
		year     int
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project one scenario onto a region for a year",
		Long: `Project the temperature and precipitation shift of a scenario for a region.

With --crop the projection is also run through the yield model, the
vulnerability classifier and the recommendation rules.`,
		Example: `  # Climate shift only
  baobabctl project --scenario SSP3-7.0 --region SouthernAfrica --year 2070

  # Full pipeline for maize
  baobabctl project --scenario SSP3-7.0 --region SouthernAfrica --year 2070 --crop maize`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.pipeline("")
			if err != nil {
				return err
			}

			if crop == "" {
				projection, err := p.projector.Project(scenario, region, year)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), projection)
				}
				return printProjection(cmd, projection)
			}

			result, err := p.comparer.Compare(cmd.Context(), domain.ComparisonRequest{
				ScenarioIDs: []string{scenario},
				RegionID:    region,
				CropID:      crop,
				Years:       []int{year},
			})
			if err != nil {
				return err
			}
			cell := result.Cells[0]
			if !cell.OK() {
				return fmt.Errorf("%s: %s", cell.Failure.Kind, cell.Failure.Message)
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), cell.Outcome)
			}
			return printOutcome(cmd, cell.Outcome)
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "", "scenario ID, e.g. SSP2-4.5")
	cmd.Flags().StringVar(&region, "region", "", "region ID")
	cmd.Flags().StringVar(&crop, "crop", "", "crop ID; runs the full pipeline when set")
	cmd.Flags().IntVar(&year, "year", 0, "projection year")
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

func printProjection(cmd *cobra.Command, p *domain.ClimateProjection) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintf(w, "Scenario:\t%s\n", p.ScenarioID)
	fmt.Fprintf(w, "Region:\t%s\n", p.RegionID)
	fmt.Fprintf(w, "Year:\t%d\n", p.Year)
	fmt.Fprintf(w, "Temperature anomaly:\t%+.2f°C\n", p.TemperatureAnomalyC)
	fmt.Fprintf(w, "Projected temperature:\t%.2f°C\n", p.ProjectedTemperatureC)
	fmt.Fprintf(w, "Precipitation change:\t%+.2f%%\n", p.PrecipitationChangePct)
	fmt.Fprintf(w, "Projected precipitation:\t%.0f mm\n", p.ProjectedPrecipitationMM)
	return w.Flush()
}

func printOutcome(cmd *cobra.Command, o *domain.CellOutcome) error {
	if err := printProjection(cmd, &o.Projection); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintf(w, "Crop:\t%s\n", o.Impact.CropID)
	fmt.Fprintf(w, "Yield change:\t%+.1f%% (%.1f to %.1f)\n",
		o.Impact.YieldChangePct, o.Impact.Confidence.Lower, o.Impact.Confidence.Upper)
	if o.Impact.TechTrendPct != 0 {
		fmt.Fprintf(w, "Technology trend:\t%+.1f%% (not included above)\n", o.Impact.TechTrendPct)
	}
	fmt.Fprintf(w, "Risk tier:\t%s\n", o.Rating.Tier)
	for _, f := range o.Rating.DrivingFactors {
		fmt.Fprintf(w, "Driver:\t%s\n", f)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return printRecommendations(cmd, o.Recommendations)
}

func printRecommendations(cmd *cobra.Command, recs []domain.Recommendation) error {
	if len(recs) == 0 {
		cmd.Println("No recommendations apply.")
		return nil
	}
	cmd.Println()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, "Rank\tPriority\tAction")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%d\t%s\n", r.Rank, r.Priority, r.Action)
	}
	return w.Flush()
}

func newRecommendCmd(opts *rootOptions) *cobra.Command {
	var scenario, tier, crop string

	cmd := &cobra.Command{
		Use:     "recommend",
		Short:   "List adaptation actions for a scenario, risk tier and crop",
		Example: `  baobabctl recommend --scenario SSP5-8.5 --tier Severe --crop maize`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := domain.ParseRiskTier(tier)
			if err != nil {
				return err
			}
			p, err := opts.pipeline("")
			if err != nil {
				return err
			}
			recs, err := p.recommender.Recommend(scenario, t, crop)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			return printRecommendations(cmd, recs)
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "", "scenario ID")
	cmd.Flags().StringVar(&tier, "tier", "", "risk tier: Low, Moderate, High or Severe")
	cmd.Flags().StringVar(&crop, "crop", "", "crop ID")
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("tier")
	_ = cmd.MarkFlagRequired("crop")

	return cmd
}
