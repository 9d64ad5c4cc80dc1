package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ai-den/jsongrammar/envconfig"
)

func NewEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show the effective configuration",
		Args:  cobra.ExactArgs(0),
		RunE:  EnvHandler,
	}

	cmd.Flags().Bool("example-config", false, "Print an example configuration file")
	return cmd
}

func EnvHandler(cmd *cobra.Command, _ []string) error {
	if example, _ := cmd.Flags().GetBool("example-config"); example {
		fmt.Fprint(cmd.OutOrStdout(), envconfig.GenerateExampleConfig())
		return nil
	}

	envs := envconfig.AsMap()
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	slices.Sort(names)

	host, err := envconfig.Host()
	if err != nil {
		return err
	}

	table := newTable(cmd.OutOrStdout(), "NAME", "VALUE", "DESCRIPTION")
	for _, name := range names {
		e := envs[name]
		value := fmt.Sprintf("%v", e.Value)
		if name == "JSONGRAMMAR_HOST" {
			value = host.String()
		}
		table.Append([]string{e.Name, value, e.Description})
	}
	table.Render()

	if path := envconfig.ConfigPath(); path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nconfig file: %s\n", path)
	}
	return nil
}
