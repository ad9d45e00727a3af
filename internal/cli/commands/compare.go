package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cimbios/CimBios.Core-sub000/internal/cli/ui"
	"github.com/Cimbios/CimBios.Core-sub000/internal/codec"
	"github.com/Cimbios/CimBios.Core-sub000/internal/difference"
)

var (
	compareOutput  string
	compareSummary bool
	compareWorkers int
	compareLoose   bool
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <left.json> <right.json>",
		Short: "Compute the differences between two graph documents",
		Long: `Compare two graph documents and write the difference document that
turns the left graph into the right one.

Objects present in both graphs become updatings, left-only objects
deletions and right-only objects additions. Objects that cannot be
compared are reported and skipped.`,
		Example: `  # Write the difference document to stdout
  cimbios compare --schema cim.yaml before.json after.json

  # Write to a file using 4 workers
  cimbios compare before.json after.json -o changes.json --workers 4

  # Print a summary table instead of the document
  cimbios compare before.json after.json --summary`,
		Args: cobra.ExactArgs(2),
		RunE: runCompare,
	}

	cmd.Flags().StringVarP(&compareOutput, "output", "o", "", "write the difference document to a file")
	cmd.Flags().BoolVar(&compareSummary, "summary", false, "print a summary table instead of the document")
	cmd.Flags().IntVar(&compareWorkers, "workers", 0, "concurrent comparisons, overrides the config")
	cmd.Flags().BoolVar(&compareLoose, "loose", false, "compare objects whose class differs")

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	left, err := env.loadGraph(args[0])
	if err != nil {
		return err
	}
	right, err := env.loadGraph(args[1])
	if err != nil {
		return err
	}

	opts := difference.CompareOptions{
		Strict:  env.cfg.Compare.Strict && !compareLoose,
		Workers: env.cfg.Compare.Workers,
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = compareWorkers
	}

	diffs, report, err := difference.CompareGraphs(cmd.Context(), left, right, opts)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}
	env.logger.Info("graphs compared",
		zap.Int("differences", diffs.Len()),
		zap.Int("skipped", report.Count()))

	if report.HasErrors() {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ReportError("compare", reportDetails(report), noColor))
	}

	if compareSummary {
		renderSummary(cmd, diffs)
		return nil
	}

	w, closeOutput, err := openOutput(cmd, compareOutput)
	if err != nil {
		return err
	}
	if err := codec.WriteDifferences(w, diffs, nil, env.output()); err != nil {
		_ = closeOutput()
		return fmt.Errorf("failed to write difference document: %w", err)
	}
	return closeOutput()
}

// renderSummary prints one row per difference
func renderSummary(cmd *cobra.Command, diffs *difference.Model) {
	out := cmd.OutOrStdout()
	if diffs.Len() == 0 {
		ui.WriteSuccess(out, "graphs are identical", noColor)
		return
	}

	table := ui.NewTable(out, []string{"OID", "KIND", "CLASS", "PROPERTIES"}, noColor)
	table.Style(1, kindColor)
	for _, d := range diffs.Differences() {
		class := ""
		if c := d.MetaClass(); c != nil {
			class = c.Name
		}
		table.AddRow(d.OID().String(), d.Kind().String(), class, fmt.Sprint(len(d.ModifiedProperties())))
	}
	table.Render()
}

func kindColor(cell string) *color.Color {
	kind, ok := difference.ParseKind(cell)
	if !ok {
		return nil
	}
	switch kind {
	case difference.KindAddition:
		return color.New(color.FgGreen)
	case difference.KindDeletion:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
