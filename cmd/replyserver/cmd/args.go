package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NormalizeArgs rewrites single-dash long flags such as "-port" or
// "-closedelay=200" to their double-dash form. Only names of flags defined
// somewhere in the command tree are rewritten, so shorthands like "-o" and
// "-h" pass through. Nothing after "--" is touched.
func NormalizeArgs(root *cobra.Command, args []string) []string {
	known := longFlagNames(root)
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if len(arg) > 2 && arg[0] == '-' && arg[1] != '-' {
			name, _, _ := strings.Cut(arg[1:], "=")
			if known[name] {
				arg = "-" + arg
			}
		}
		out = append(out, arg)
	}
	return out
}

// longFlagNames collects multi-character flag names from cmd and its subcommands.
func longFlagNames(cmd *cobra.Command) map[string]bool {
	names := map[string]bool{"help": true, "version": true}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		add := func(f *pflag.Flag) {
			if len(f.Name) > 1 {
				names[f.Name] = true
			}
		}
		c.Flags().VisitAll(add)
		c.PersistentFlags().VisitAll(add)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(cmd)
	return names
}
