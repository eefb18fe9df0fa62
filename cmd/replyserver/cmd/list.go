package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ChristianLindehammar/http-reply-test-server/internal/config"
	"github.com/ChristianLindehammar/http-reply-test-server/internal/testcase"
)

// listing is the machine-readable form of the list command.
type listing struct {
	Source string          `json:"source" yaml:"source"`
	Origin string          `json:"origin,omitempty" yaml:"origin,omitempty"`
	Range  string          `json:"range" yaml:"range"`
	Cases  []testcase.Case `json:"cases" yaml:"cases"`
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the test cases that would be served, in order",
		Long: `Resolve test cases exactly as the server does and print them without
binding the port. Server flags such as -testdir, -zip, -file, -start, -stop and
-single are honored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}

			set := testcase.Resolve(cfg, logger)
			defer set.Close()

			data := listing{
				Source: string(set.Kind),
				Origin: set.Origin,
				Range:  cfg.RangeString(),
				Cases:  set.Cases,
			}
			if data.Cases == nil {
				data.Cases = []testcase.Case{}
			}
			if cfg.File != "" {
				data.Range = config.FormatRange(0, 0)
			}

			handled, err := formatOutput(cmd.OutOrStdout(), output, data)
			if handled || err != nil {
				return err
			}
			return printCaseTable(cmd, data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json, yaml")
	return cmd
}

func printCaseTable(cmd *cobra.Command, data listing) error {
	out := cmd.OutOrStdout()
	if len(data.Cases) == 0 {
		fmt.Fprintf(out, "No test cases found in range %s\n", data.Range)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tSIZE\tSOURCE")
	for _, c := range data.Cases {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.Index, c.Name, c.Size, c.Kind)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d test case(s) from %s %s\n", len(data.Cases), data.Source, data.Origin)
	return nil
}
