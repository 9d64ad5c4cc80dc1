package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ai-den/jsongrammar/api"
	"github.com/ai-den/jsongrammar/check"
	"github.com/ai-den/jsongrammar/grammar/jsonschema"
)

var errUnsound = errors.New("the grammar accepted instances the schema rejects")

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check SCHEMA INSTANCE...",
		Short: "Match instances against a schema's grammar and validate them against the schema",
		Long: `Compile SCHEMA and report, for each INSTANCE file, whether the grammar
accepts its text and whether the schema validates it.

The command fails if the grammar accepts an instance the schema rejects.`,
		Args: cobra.MinimumNArgs(2),
		RunE: CheckHandler,
	}

	addCompileFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the results as JSON")
	return cmd
}

func CheckHandler(cmd *cobra.Command, args []string) error {
	data, name, err := readSchema(cmd, args[:1])
	if err != nil {
		return err
	}

	opts, err := compileOptions(cmd)
	if err != nil {
		return err
	}

	c, err := check.New(data, opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	resp := api.CheckResponse{Root: c.Grammar.Root()}
	sound := true
	for _, path := range args[1:] {
		instance, err := readInstance(path)
		if err != nil {
			return err
		}

		r := c.Check(instance)
		result := api.CheckResult{Accepted: r.Accepted, Valid: r.Valid}
		if r.Err != nil {
			result.Error = r.Err.Error()
		}
		resp.Results = append(resp.Results, result)
		sound = sound && r.Sound()
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		table := newTable(cmd.OutOrStdout(), "INSTANCE", "ACCEPTED", "VALID", "ERROR")
		for i, r := range resp.Results {
			table.Append([]string{args[i+1], strconv.FormatBool(r.Accepted), strconv.FormatBool(r.Valid), firstLine(r.Error)})
		}
		table.Render()
	}

	if !sound {
		return errUnsound
	}
	return nil
}

// readInstance reads an instance file. YAML files are converted to compact
// JSON; JSON files are matched as written, less trailing newlines.
func readInstance(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		data, err = jsonschema.FromYAML(data)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
