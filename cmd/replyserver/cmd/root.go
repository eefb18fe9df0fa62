// Package cmd implements the replyserver CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ChristianLindehammar/http-reply-test-server/internal/version"
)

// rootOptions holds the flag values of one command tree.
type rootOptions struct {
	port          int
	closeDelayMS  int
	single        int
	start         int
	stop          int
	file          string
	testDir       string
	zip           string
	once          bool
	readTimeoutMS int
	journal       string
	syslog        bool
	configPath    string
	logLevel      string
	noColor       bool
}

// NewRootCmd builds the replyserver command tree. Running the root command
// starts the server.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "replyserver",
		Short: "Answer TCP connections with pre-recorded HTTP responses",
		Long: `replyserver listens on a TCP port and answers each connection, one at a
time, with the next pre-recorded test case: raw bytes taken from a file, a zip
archive or a directory of numerically named files. Once the test cases are used
up it answers every connection with a plain "Hello, World!" response.

It exists to exercise an HTTP client's response parsing against malformed,
truncated or unusual replies.`,
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	// Server flags are persistent so that "list" resolves with the same settings.
	f := rootCmd.PersistentFlags()
	f.IntVar(&opts.port, "port", 8000, "Port number to listen on")
	f.IntVar(&opts.closeDelayMS, "closedelay", 0, "Delay in milliseconds before closing the socket")
	f.IntVar(&opts.single, "single", 0, "Inject the single test case with this index")
	f.IntVar(&opts.start, "start", 0, "First test case index")
	f.IntVar(&opts.stop, "stop", 0, "Last test case index (default: max int)")
	f.StringVar(&opts.file, "file", "", "Send this single file instead of test cases")
	f.StringVar(&opts.testDir, "testdir", "testcases", "Directory containing test cases")
	f.StringVar(&opts.zip, "zip", "", "Zip file containing test cases")
	f.BoolVar(&opts.once, "once", false, "Exit after the last test case instead of serving the default response")
	f.IntVar(&opts.readTimeoutMS, "read-timeout", 0, "Milliseconds to wait for a request (0 waits indefinitely)")
	f.StringVar(&opts.journal, "journal", "", "Append a JSON line per injection to this file")
	f.BoolVar(&opts.syslog, "syslog", false, "Also record injections to the local syslog daemon")
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored console output")

	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd(rootCmd))
	return rootCmd
}

func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for replyserver.

To load completions:

Bash:
  source <(replyserver completion bash)

Zsh:
  source <(replyserver completion zsh)

Fish:
  replyserver completion fish > ~/.config/fish/completions/replyserver.fish

PowerShell:
  replyserver completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unknown shell: %s", args[0])
			}
		},
	}
}

// Execute runs the command tree with args, accepting the single-dash long
// flags (-port 9000) of earlier releases.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(NormalizeArgs(rootCmd, args))
	return rootCmd.ExecuteContext(ctx)
}

// formatOutput writes data as json or yaml. It reports false for table
// output, which each command renders itself.
func formatOutput(w io.Writer, format string, data any) (bool, error) {
	switch format {
	case "json":
		return true, outputJSON(w, data)
	case "yaml":
		return true, outputYAML(w, data)
	case "table", "":
		return false, nil
	default:
		return false, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func outputJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputYAML(w io.Writer, data any) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
