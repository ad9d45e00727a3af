package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Cimbios/CimBios.Core-sub000/internal/cli/ui"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// NewSchemaCommand creates the schema command
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [class]",
		Short: "Show the classes of the schema",
		Long: `List the schema classes with parents before children, or show the
properties of a single class, including inherited and extension
properties.`,
		Example: `  # List all classes
  cimbios schema --schema cim.yaml

  # Show the properties of a class
  cimbios schema --schema cim.yaml Terminal`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSchema,
	}
}

func runSchema(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	if len(args) == 1 {
		return showClass(cmd, env.schema, args[0])
	}

	order, err := env.schema.DependencyOrder()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ui.Header(out, fmt.Sprintf("%s (%d classes)", env.schema.Namespace(), env.schema.Count()), noColor)
	table := ui.NewTable(out, []string{"CLASS", "FLAGS", "PARENTS", "PROPERTIES"}, noColor)
	for _, uri := range order {
		c, _ := env.schema.ResolveClass(uri)
		table.AddRow(c.Name, classFlags(c), classNames(c.Parents), fmt.Sprint(len(c.OwnProperties())))
	}
	table.Render()
	return nil
}

func showClass(cmd *cobra.Command, s *schema.Schema, name string) error {
	c, ok := s.ResolveClass(name)
	if !ok {
		names := make([]string, 0, s.Count())
		for _, cls := range s.Classes() {
			names = append(names, cls.Name)
		}
		suggestions := ui.FindSimilar(name, names, nil)
		return reportFailure(cmd, ui.ClassNotFoundError(name, suggestions, noColor),
			fmt.Errorf("class %s not found", name))
	}

	out := cmd.OutOrStdout()
	ui.Header(out, c.Name, noColor)
	if flags := classFlags(c); flags != "" {
		fmt.Fprintf(out, "%s\n\n", flags)
	}

	table := ui.NewTable(out, []string{"PROPERTY", "KIND", "TYPE", "INVERSE", "REQUIRED"}, noColor)
	for _, p := range c.AllProperties() {
		inverse := ""
		if p.Inverse != nil {
			inverse = p.Inverse.ShortName()
		}
		required := ""
		if p.Required {
			required = "yes"
		}
		table.AddRow(p.ShortName(), p.Kind.String(), propertyType(p), inverse, required)
	}
	table.Render()

	if len(c.Individuals) > 0 {
		names := make([]string, len(c.Individuals))
		for i, ind := range c.Individuals {
			names[i] = ind.Name
		}
		fmt.Fprintf(out, "\nindividuals: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func classFlags(c *schema.MetaClass) string {
	var flags []string
	if c.Abstract {
		flags = append(flags, "abstract")
	}
	if c.Datatype {
		flags = append(flags, "datatype:"+c.Primitive.String())
	}
	if c.Enum {
		flags = append(flags, "enum")
	}
	if c.Compound {
		flags = append(flags, "compound")
	}
	if c.Extension {
		flags = append(flags, "extends "+classNames(c.ExtensionOf))
	}
	return strings.Join(flags, ", ")
}

func classNames(classes []*schema.MetaClass) string {
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func propertyType(p *schema.MetaProperty) string {
	if p.Datatype != nil {
		return p.Datatype.Name
	}
	return p.Primitive.String()
}
