package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ai-den/jsongrammar/envconfig"
)

func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch SCHEMA...",
		Short: "Compile many schemas concurrently",
		Long: `Compile each SCHEMA and write its grammar next to it, replacing the
file extension with .gbnf. Up to JSONGRAMMAR_NUM_PARALLEL schemas are
compiled at once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: BatchHandler,
	}

	addCompileFlags(cmd)
	cmd.Flags().StringP("dir", "d", "", "Write grammars to this directory instead")
	return cmd
}

func grammarPath(dir, schemaPath string) string {
	name := strings.TrimSuffix(filepath.Base(schemaPath), filepath.Ext(schemaPath)) + ".gbnf"
	if dir == "" {
		dir = filepath.Dir(schemaPath)
	}
	return filepath.Join(dir, name)
}

func BatchHandler(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// flags are only read here; compile options are shared by every worker
	if _, err := compileOptions(cmd); err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(envconfig.NumParallel)

	outputs := make([]string, len(args))
	for i, path := range args {
		g.Go(func() error {
			gr, err := compileArgs(cmd, []string{path})
			if err != nil {
				return err
			}

			out := grammarPath(dir, path)
			if err := os.WriteFile(out, gr.Append(nil), 0o644); err != nil {
				return err
			}

			slog.Debug("wrote grammar", "schema", path, "grammar", out, "productions", gr.Len())
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, out := range outputs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[i], out)
	}
	return nil
}
