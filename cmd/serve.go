package cmd

import (
	"errors"
	"net"

	"github.com/spf13/cobra"

	"github.com/ai-den/jsongrammar/envconfig"
	"github.com/ai-den/jsongrammar/server"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the grammar server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
}

func RunServer(cmd *cobra.Command, _ []string) error {
	envconfig.ReloadServerConfig()

	host, err := envconfig.Host()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", host.String())
	if err != nil {
		return err
	}

	if err := server.Serve(ln); !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
