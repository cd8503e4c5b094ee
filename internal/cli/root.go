// Package cli implements the baobabctl command line, which runs the
// projection pipeline locally against a catalog without a server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/climate"
	"github.com/opensource-finance/baobab/internal/compare"
	"github.com/opensource-finance/baobab/internal/domain"
	"github.com/opensource-finance/baobab/internal/observability"
	"github.com/opensource-finance/baobab/internal/outlook"
	"github.com/opensource-finance/baobab/internal/rules"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	catalogPath string
	jsonOutput  bool
	debug       bool
	model       domain.ModelConfig
}

// NewRootCmd creates the root Cobra command for baobabctl.
func NewRootCmd(ver string) *cobra.Command {
	opts := &rootOptions{model: domain.DefaultConfig().Model}

	cmd := &cobra.Command{
		Use:           "baobabctl",
		Short:         "Climate scenario crop risk from the command line",
		Long:          "baobabctl projects SSP climate scenarios onto African crop yields and compares them.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logCfg := domain.LoggingConfig{Level: "warn", Format: "text"}
			if opts.debug {
				logCfg.Level = "debug"
			}
			slog.SetDefault(observability.NewLogger(cmd.ErrOrStderr(), logCfg))

			if opts.model.HorizonStart >= opts.model.HorizonEnd {
				return fmt.Errorf("horizon start %d must be before end %d", opts.model.HorizonStart, opts.model.HorizonEnd)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", os.Getenv("BAOBAB_CATALOG"),
		"path to a YAML catalog (default: built-in catalog)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "write JSON instead of a table")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().IntVar(&opts.model.HorizonStart, "horizon-start", opts.model.HorizonStart,
		"first supported projection year")
	cmd.PersistentFlags().IntVar(&opts.model.HorizonEnd, "horizon-end", opts.model.HorizonEnd,
		"last supported projection year")

	cmd.AddCommand(
		newScenariosCmd(opts),
		newRegionsCmd(opts),
		newCropsCmd(opts),
		newProjectCmd(opts),
		newRecommendCmd(opts),
		newCompareCmd(opts),
	)
	return cmd
}

const rootCmdExample = `  # List the bundled scenarios
  baobabctl scenarios

  # Project SSP5-8.5 warming for West Africa in 2050
  baobabctl project --scenario SSP5-8.5 --region WestAfrica --year 2050

  # Compare all four pathways for maize
  baobabctl compare --region WestAfrica --crop maize --years 2030,2050,2080

  # Use a custom catalog and print JSON
  baobabctl --catalog ./catalog.yaml --json regions`

// pipeline is the set of components built from one catalog.
type pipeline struct {
	catalog     *catalog.Catalog
	projector   *climate.Projector
	recommender *rules.Engine
	comparer    *compare.Comparer
	outlook     *outlook.Processor
}

func (o *rootOptions) loadCatalog() (*catalog.Catalog, error) {
	if o.catalogPath == "" {
		return catalog.Default()
	}
	c, err := catalog.Load(o.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", o.catalogPath, err)
	}
	return c, nil
}

// pipeline loads the catalog and wires the comparison stages over it.
func (o *rootOptions) pipeline(baseline string) (*pipeline, error) {
	c, err := o.loadCatalog()
	if err != nil {
		return nil, err
	}
	engine, err := rules.NewEngine(c)
	if err != nil {
		return nil, fmt.Errorf("compiling recommendations: %w", err)
	}
	if baseline == "" {
		baseline = o.model.BaselineScenario
	}

	projector := climate.NewProjector(c, o.model.HorizonStart, o.model.HorizonEnd)
	return &pipeline{
		catalog:     c,
		projector:   projector,
		recommender: engine,
		comparer: compare.NewComparer(c, projector, engine, compare.Options{
			Workers:          o.model.Workers,
			BaselineScenario: baseline,
		}),
		outlook: outlook.NewProcessor(c, o.model.OutlookStart, o.model.OutlookEnd, baseline),
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
