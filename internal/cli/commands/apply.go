package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Cimbios/CimBios.Core-sub000/internal/cli/ui"
	"github.com/Cimbios/CimBios.Core-sub000/internal/codec"
)

var (
	applyOutput string
	applyInvert bool
)

// NewApplyCommand creates the apply command
func NewApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <graph.json> <differences.json>",
		Short: "Replay a difference document onto a graph",
		Long: `Apply the forward set of a difference document to a graph document
and write the resulting graph.

Differences that cannot be applied (missing objects, classes unknown to
the schema) are reported and skipped. With --invert the reverse set is
applied instead, undoing the document.`,
		Example: `  # Apply changes and print the resulting graph
  cimbios apply --schema cim.yaml before.json changes.json

  # Undo the changes
  cimbios apply after.json changes.json --invert -o before.json`,
		Args: cobra.ExactArgs(2),
		RunE: runApply,
	}

	cmd.Flags().StringVarP(&applyOutput, "output", "o", "", "write the resulting graph to a file")
	cmd.Flags().BoolVar(&applyInvert, "invert", false, "apply the reverse set of the document")

	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	target, err := env.loadGraph(args[0])
	if err != nil {
		return err
	}
	diffs, err := env.loadDifferences(args[1])
	if err != nil {
		return err
	}
	if applyInvert {
		diffs = diffs.Invert()
	}

	report := diffs.Apply(target)
	if report.HasErrors() {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ReportError("apply", reportDetails(report), noColor))
	}

	w, closeOutput, err := openOutput(cmd, applyOutput)
	if err != nil {
		return err
	}
	if err := codec.WriteGraph(w, target.Objects(), nil, env.output()); err != nil {
		_ = closeOutput()
		return fmt.Errorf("failed to write graph document: %w", err)
	}
	if err := closeOutput(); err != nil {
		return err
	}

	ui.WriteSuccess(cmd.ErrOrStderr(), fmt.Sprintf("applied %d of %d differences", report.Applied, diffs.Len()), noColor)
	return nil
}
