package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/skekre98/modhost/graph"
	"github.com/skekre98/modhost/module"
)

func newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order MANIFEST...",
		Short: "Print the startup order of module manifests",
		Long: `Read module manifests and print the order in which they would be
started. When the requirements form a cycle the manifests are listed in the
given order and a warning names the modules involved.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descs := make([]module.Descriptor, 0, len(args))
			v := module.NewValidator()
			for _, path := range args {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				d, err := module.ParseManifest(b)
				if err == nil {
					err = v.Validate(d)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				descs = append(descs, d)
			}

			ordered, err := graph.ResolveStartupOrder(descs)
			var unresolved *graph.UnresolvedError
			if errors.As(err, &unresolved) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s no dependency-safe order, cycle among: %s\n",
					text.FgYellow.Sprint("warning:"), strings.Join(unresolved.Remaining, ", "))
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"#", "ID", "VERSION", "REQUIRES"})
			for i, d := range ordered {
				t.AppendRow(table.Row{i + 1, d.ID, d.Version, strings.Join(d.Requires, ", ")})
			}
			t.Render()
			return nil
		},
	}
}
