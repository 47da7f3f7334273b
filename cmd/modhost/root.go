package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modhost",
		Short: "Host and orchestrate pluggable modules",
		Long: `modhost runs an HTTP host whose modules can be installed, updated,
started, stopped and unloaded at runtime in dependency-safe order.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "modhost version %s\n" .Version}}`)
	root.AddCommand(newServeCmd(), newOrderCmd())
	return root
}
