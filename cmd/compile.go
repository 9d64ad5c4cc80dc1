package cmd

import (
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ai-den/jsongrammar/api"
)

func NewCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [SCHEMA]",
		Short: "Compile a JSON schema into a GBNF grammar",
		Long: `Compile a JSON schema into a GBNF grammar.

The schema is read from SCHEMA, or from stdin when SCHEMA is omitted or "-".
Files ending in .yaml or .yml are read as YAML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: CompileHandler,
	}

	addCompileFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	cmd.Flags().StringP("output", "o", "", "Write the grammar to a file")
	return cmd
}

func CompileHandler(cmd *cobra.Command, args []string) error {
	g, err := compileArgs(cmd, args)
	if err != nil {
		return err
	}

	out := []byte(g.String())
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		out, err = json.MarshalIndent(api.GrammarResponse{
			Root:        g.Root(),
			Grammar:     g.String(),
			Productions: g.Len(),
		}, "", "  ")
		if err != nil {
			return err
		}
		out = append(out, '\n')
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		return os.WriteFile(path, out, 0o644)
	}

	_, err = cmd.OutOrStdout().Write(out)
	return err
}

type rule struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules [SCHEMA]",
		Short: "List the productions compiled from a JSON schema",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RulesHandler,
	}

	addCompileFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the productions as JSON")
	return cmd
}

func RulesHandler(cmd *cobra.Command, args []string) error {
	g, err := compileArgs(cmd, args)
	if err != nil {
		return err
	}

	rules := []rule{{Name: "root", Body: "space " + g.Root()}}
	for name, body := range g.Rules() {
		rules = append(rules, rule{Name: name, Body: body})
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(rules)
	}

	table := newTable(cmd.OutOrStdout(), "NAME", "BODY")
	for _, r := range rules {
		table.Append([]string{r.Name, r.Body})
	}
	table.Render()
	return nil
}
