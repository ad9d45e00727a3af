package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Cimbios/CimBios.Core-sub000/internal/cli/ui"
	"github.com/Cimbios/CimBios.Core-sub000/internal/codec"
	"github.com/Cimbios/CimBios.Core-sub000/internal/graph"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <graph.json>",
		Short: "Check a graph document against the schema",
		Long: `Load a graph document, report required properties without a value
and references that do not resolve to an object of the graph, and print
the digest of its canonical form.`,
		Example: `  cimbios validate --schema cim.yaml network.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	g, err := env.loadGraph(args[0])
	if err != nil {
		return err
	}

	if report := g.Validate(); report.HasErrors() {
		return reportFailure(cmd, ui.ValidationError(issueDetails(report), noColor), report)
	}

	doc, err := codec.EncodeGraph(g.Objects(), nil)
	if err != nil {
		return err
	}
	digest, err := codec.Digest(doc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("objects", fmt.Sprint(g.Len()))
	kv.AddRow("digest", digest)
	kv.Render()
	ui.WriteSuccess(out, "graph is valid", noColor)
	return nil
}

func issueDetails(r *graph.Report) []string {
	details := make([]string, 0, r.Count())
	for _, issue := range r.Issues {
		if issue.Property != "" {
			details = append(details, fmt.Sprintf("%s.%s: %v", issue.OID, issue.Property, issue.Err))
		} else {
			details = append(details, fmt.Sprintf("%s: %v", issue.OID, issue.Err))
		}
	}
	return details
}
