package main

import (
	"github.com/OFFIS-RIT/threatmap/internal/server"
	"github.com/OFFIS-RIT/threatmap/internal/util"

	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	port := util.GetEnvString("PORT", "8080")

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sanitized records over HTTP",
		Run: func(cmd *cobra.Command, args []string) {
			server.Init(a.paths.resolve(a.paths.Sanitized), port)
		},
	}

	cmd.Flags().StringVar(&port, "port", port, "listen port")

	return cmd
}
