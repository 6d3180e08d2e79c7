package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/sdmx-go"
)

func newProvidersCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the available providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := g.config(nil)
			if err != nil {
				return err
			}
			sources, err := sdmx.Open(config)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tURL")
			for _, p := range sources.Providers() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.URL)
			}
			return w.Flush()
		},
	}
}

func newDataflowsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dataflows PROVIDER [SEARCH...]",
		Short: "List or search the dataflows of a provider",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := g.config(nil)
			if err != nil {
				return err
			}
			sources, err := sdmx.Open(config)
			if err != nil {
				return err
			}
			flows, err := sources.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(args) > 1 {
				flows = flows.Search(strings.Join(args[1:], " "))
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tVERSION")
			for _, f := range flows.Dataflows() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Name, f.Version)
			}
			return w.Flush()
		},
	}
}

func newDescribeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe PROVIDER DATAFLOW",
		Short: "Print the parameters of a dataflow as a YAML catalog source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := g.config(nil)
			if err != nil {
				return err
			}
			sources, err := sdmx.Open(config)
			if err != nil {
				return err
			}
			entry, err := sources.Dataset(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			doc, err := entry.Describe()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(doc)
			return err
		},
	}
}
