package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ai-den/jsongrammar/envconfig"
	"github.com/ai-den/jsongrammar/grammar"
	"github.com/ai-den/jsongrammar/grammar/jsonschema"
	"github.com/ai-den/jsongrammar/logutil"
	"github.com/ai-den/jsongrammar/version"
)

var errNoSchema = errors.New("no schema given: pass a file or pipe one to stdin")

// readSchema reads the schema named by args, or stdin when args is empty
// or "-". YAML input is converted to JSON.
func readSchema(cmd *cobra.Command, args []string) ([]byte, string, error) {
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}

	var data []byte
	var err error
	if name == "-" {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return nil, "", errNoSchema
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, "", err
	}

	isYAML, _ := cmd.Flags().GetBool("yaml")
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		isYAML = true
	}

	if isYAML {
		data, err = jsonschema.FromYAML(data)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", name, err)
		}
	}

	return data, name, nil
}

func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().String("root-name", "", "Name of the root production")
	cmd.Flags().String("whitespace", "", "Whitespace allowed at join points: single, none or flexible (default from JSONGRAMMAR_WHITESPACE)")
	cmd.Flags().Bool("yaml", false, "Read the schema as YAML")
}

func compileOptions(cmd *cobra.Command) ([]grammar.Option, error) {
	ws, _ := cmd.Flags().GetString("whitespace")
	if ws == "" {
		ws = envconfig.Whitespace
	}

	w, err := grammar.ParseWhitespace(ws)
	if err != nil {
		return nil, err
	}

	opts := []grammar.Option{grammar.WithWhitespace(w)}
	if name, _ := cmd.Flags().GetString("root-name"); name != "" {
		opts = append(opts, grammar.WithRootName(name))
	}
	return opts, nil
}

func compileArgs(cmd *cobra.Command, args []string) (*grammar.Grammar, error) {
	data, name, err := readSchema(cmd, args)
	if err != nil {
		return nil, err
	}

	opts, err := compileOptions(cmd)
	if err != nil {
		return nil, err
	}

	s, err := grammar.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	g, err := grammar.Compile(s, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return g, nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-26s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:          "jsongrammar",
		Short:        "JSON schema to GBNF grammar compiler",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel, envconfig.LogFormat))
		},
	}

	rootCmd.SetVersionTemplate("jsongrammar version {{.Version}}\n")

	envVars := envconfig.AsMap()

	compileCmd := NewCompileCmd()
	rulesCmd := NewRulesCmd()
	checkCmd := NewCheckCmd()
	validateCmd := NewValidateCmd()
	batchCmd := NewBatchCmd()
	serveCmd := NewServeCmd()
	envCmd := NewEnvCmd()

	for _, cmd := range []*cobra.Command{compileCmd, rulesCmd, checkCmd} {
		appendEnvDocs(cmd, []envconfig.EnvVar{envVars["JSONGRAMMAR_WHITESPACE"], envVars["JSONGRAMMAR_DEBUG"]})
	}
	appendEnvDocs(batchCmd, []envconfig.EnvVar{
		envVars["JSONGRAMMAR_WHITESPACE"],
		envVars["JSONGRAMMAR_NUM_PARALLEL"],
		envVars["JSONGRAMMAR_DEBUG"],
	})
	appendEnvDocs(serveCmd, []envconfig.EnvVar{
		envVars["JSONGRAMMAR_HOST"],
		envVars["JSONGRAMMAR_ORIGINS"],
		envVars["JSONGRAMMAR_NUM_PARALLEL"],
		envVars["JSONGRAMMAR_WHITESPACE"],
		envVars["JSONGRAMMAR_DEBUG"],
		envVars["JSONGRAMMAR_LOG_FORMAT"],
		envVars["JSONGRAMMAR_CONFIG"],
	})

	rootCmd.AddCommand(
		compileCmd,
		rulesCmd,
		checkCmd,
		validateCmd,
		batchCmd,
		serveCmd,
		envCmd,
	)

	return rootCmd
}
