package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"chatkitlab/internal/embedconfig"
	"chatkitlab/pkg/config"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve the configuration, print it and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), cfg, embedconfig.Resolve(cfg, time.Now()))
			return nil
		},
	}
}

// printSummary never prints the API key or the domain key itself.
func printSummary(w io.Writer, cfg config.Config, ec embedconfig.EmbedConfig) {
	orNone := func(s string) string {
		if s == "" {
			return "(none)"
		}
		return s
	}
	fmt.Fprintf(w, "listen:            %s\n", cfg.HTTPAddr())
	fmt.Fprintf(w, "public base url:   %s\n", ec.PublicBaseURL)
	fmt.Fprintf(w, "workflow url:      %s\n", orNone(ec.WorkflowURL))
	fmt.Fprintf(w, "workflow id:       %s\n", orNone(ec.WorkflowID()))
	fmt.Fprintf(w, "session api:       %t\n", ec.SessionAPIEnabled)
	fmt.Fprintf(w, "domain key set:    %t\n", ec.DomainKey != nil)
	fmt.Fprintf(w, "strategy:          %s\n", ec.Strategy())
	fmt.Fprintf(w, "upstream:          %s\n", cfg.APIBase)
	static := "(disabled)"
	if cfg.StaticDirExists() {
		static = cfg.StaticDir
	}
	fmt.Fprintf(w, "static dir:        %s\n", static)
}
