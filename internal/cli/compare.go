package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/baobab/internal/domain"
	"github.com/opensource-finance/baobab/internal/outlook"
)

// ErrCellsFailed is returned by compare --strict when any cell failed.
var ErrCellsFailed = errors.New("one or more cells failed")

type compareParams struct {
	scenarios []string
	region    string
	crop      string
	years     []int
	baseline  string
	strict    bool
}

// compareOutput is the --json document of the compare command.
type compareOutput struct {
	Result  *domain.ComparisonResult `json:"result"`
	Outlook *outlook.Outlook         `json:"outlook"`
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	var params compareParams

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare scenarios for a region and crop across years",
		Long: `Run every (scenario, year) cell through the projection pipeline and print
the comparison table followed by the per-scenario outlook.

A cell that cannot be computed, for example a year outside the horizon, is
reported in the table and does not stop the others.`,
		Example: `  # All catalog scenarios
  baobabctl compare --region EastAfrica --crop beans --years 2030,2050,2080

  # Two pathways against SSP1-2.6
  baobabctl compare --scenarios SSP1-2.6,SSP5-8.5 --baseline SSP1-2.6 \
    --region WestAfrica --crop maize --years 2050`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompare(cmd, opts, params)
		},
	}

	cmd.Flags().StringSliceVar(&params.scenarios, "scenarios", nil, "scenario IDs (default: every catalog scenario)")
	cmd.Flags().StringVar(&params.region, "region", "", "region ID")
	cmd.Flags().StringVar(&params.crop, "crop", "", "crop ID")
	cmd.Flags().IntSliceVar(&params.years, "years", nil, "projection years")
	cmd.Flags().StringVar(&params.baseline, "baseline", "", "reference scenario for yield deltas")
	cmd.Flags().BoolVar(&params.strict, "strict", false, "exit with an error when any cell failed")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("crop")
	_ = cmd.MarkFlagRequired("years")

	return cmd
}

func runCompare(cmd *cobra.Command, opts *rootOptions, params compareParams) error {
	p, err := opts.pipeline(params.baseline)
	if err != nil {
		return err
	}

	scenarios := params.scenarios
	if len(scenarios) == 0 {
		for _, s := range p.catalog.ListScenarios() {
			scenarios = append(scenarios, s.ID)
		}
	}

	result, err := p.comparer.Compare(cmd.Context(), domain.ComparisonRequest{
		ScenarioIDs: scenarios,
		RegionID:    params.region,
		CropID:      params.crop,
		Years:       params.years,
	})
	if err != nil {
		return err
	}
	o := p.outlook.Summarize(result)

	if opts.jsonOutput {
		err = writeJSON(cmd.OutOrStdout(), compareOutput{Result: result, Outlook: o})
	} else {
		err = printComparison(cmd, result, o)
	}
	if err != nil {
		return err
	}

	if params.strict && result.Failed() > 0 {
		return fmt.Errorf("%w: %d of %d", ErrCellsFailed, result.Failed(), len(result.Cells))
	}
	return nil
}

func printComparison(cmd *cobra.Command, result *domain.ComparisonResult, o *outlook.Outlook) error {
	cmd.Printf("%s / %s\n\n", result.RegionID, result.CropID)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, "Scenario\tYear\tAnomaly\tYield\tRange\tTier\tVs baseline")
	for _, cell := range result.Cells {
		if !cell.OK() {
			fmt.Fprintf(w, "%s\t%d\t-\t-\t-\t-\t%s: %s\n",
				cell.ScenarioID, cell.Year, cell.Failure.Kind, cell.Failure.Message)
			continue
		}
		out := cell.Outcome
		delta := "-"
		if out.DeltaVsBaselinePct != nil {
			delta = fmt.Sprintf("%+.1f%%", *out.DeltaVsBaselinePct)
		}
		fmt.Fprintf(w, "%s\t%d\t%+.2f°C\t%+.1f%%\t%.1f..%.1f\t%s\t%s\n",
			cell.ScenarioID, cell.Year,
			out.Projection.TemperatureAnomalyC,
			out.Impact.YieldChangePct,
			out.Impact.Confidence.Lower, out.Impact.Confidence.Upper,
			out.Rating.Tier, delta)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Printf("\nOutlook %d-%d", o.PeriodStart, o.PeriodEnd)
	if o.Baseline != "" {
		cmd.Printf(" (baseline %s)", o.Baseline)
	}
	cmd.Println()

	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, "Scenario\tWorst tier\tMean yield\tYears")
	for _, s := range o.Scenarios {
		tier, mean := "-", "-"
		if s.WorstTier != nil {
			tier = s.WorstTier.String()
		}
		if s.MeanYieldChangePct != nil {
			mean = fmt.Sprintf("%+.1f%%", *s.MeanYieldChangePct)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ScenarioID, tier, mean, joinYears(s.YearsAveraged))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if severe := outlook.SevereScenarios(o); len(severe) > 0 {
		cmd.Printf("\nSevere risk under %s\n", strings.Join(severe, ", "))
	}
	return nil
}

func joinYears(years []int) string {
	if len(years) == 0 {
		return "-"
	}
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprint(y)
	}
	return strings.Join(parts, ",")
}
