package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChristianLindehammar/http-reply-test-server/pkg/clierror"
)

// CommandResult captures the output and error from a command execution.
type CommandResult struct {
	Stdout string
	Stderr string
	Err    error
}

// Run executes a cobra command with the given arguments and captures output.
// It sets up stdout/stderr capture, executes the command, and returns the result.
//
// Example:
//
//	result := cli.Run(cmd.NewRootCmd(), "version")
//	result.AssertSuccess(t)
//	result.AssertContains(t, "version")
func Run(cmd *cobra.Command, args ...string) *CommandResult {
	return RunContext(context.Background(), cmd, args...)
}

// RunContext is Run with a context visible to the command as cmd.Context().
func RunContext(ctx context.Context, cmd *cobra.Command, args ...string) *CommandResult {
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)

	return &CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Err:    err,
	}
}

// Background is a long-running command started with Start.
type Background struct {
	cancel context.CancelFunc
	done   chan *CommandResult
}

// Start runs the command in a goroutine, for commands that only return when
// their context is cancelled. Output is available once Stop returns.
//
// Example:
//
//	bg := cli.Start(root, "--port", port)
//	// ... talk to the server ...
//	result := bg.Stop(t)
//	result.AssertSuccess(t)
func Start(cmd *cobra.Command, args ...string) *Background {
	ctx, cancel := context.WithCancel(context.Background())
	bg := &Background{cancel: cancel, done: make(chan *CommandResult, 1)}
	go func() { bg.done <- RunContext(ctx, cmd, args...) }()
	return bg
}

// Stop cancels the command and waits for it to return.
func (b *Background) Stop(t *testing.T) *CommandResult {
	t.Helper()
	b.cancel()
	return b.Wait(t)
}

// Wait blocks until the command returns on its own.
func (b *Background) Wait(t *testing.T) *CommandResult {
	t.Helper()
	select {
	case r := <-b.done:
		b.done <- r
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("command did not return within 10s")
		return nil
	}
}

// AssertSuccess fails the test if the command returned an error.
func (r *CommandResult) AssertSuccess(t *testing.T) {
	t.Helper()
	if r.Err != nil {
		t.Fatalf("expected command to succeed, got error: %v\nstdout: %s\nstderr: %s",
			r.Err, r.Stdout, r.Stderr)
	}
}

// AssertError fails the test if the command did not return an error.
func (r *CommandResult) AssertError(t *testing.T) {
	t.Helper()
	if r.Err == nil {
		t.Fatalf("expected command to fail, but it succeeded\nstdout: %s", r.Stdout)
	}
}

// AssertExitCode fails the test if the process would not exit with code.
func (r *CommandResult) AssertExitCode(t *testing.T, code int) {
	t.Helper()
	got := clierror.ExitSuccess
	if r.Err != nil {
		got = clierror.From(r.Err).ExitCode
	}
	if got != code {
		t.Errorf("expected exit code %d, got %d (error: %v)", code, got, r.Err)
	}
}

// AssertContains fails the test if stdout does not contain the expected string.
func (r *CommandResult) AssertContains(t *testing.T, expected string) {
	t.Helper()
	if !strings.Contains(r.Stdout, expected) {
		t.Errorf("expected stdout to contain %q, got:\n%s", expected, r.Stdout)
	}
}

// AssertNotContains fails the test if stdout contains the unexpected string.
func (r *CommandResult) AssertNotContains(t *testing.T, unexpected string) {
	t.Helper()
	if strings.Contains(r.Stdout, unexpected) {
		t.Errorf("expected stdout NOT to contain %q, got:\n%s", unexpected, r.Stdout)
	}
}

// AssertPrefix fails the test if stdout does not start with the expected prefix.
func (r *CommandResult) AssertPrefix(t *testing.T, expected string) {
	t.Helper()
	trimmed := strings.TrimSpace(r.Stdout)
	if !strings.HasPrefix(trimmed, expected) {
		t.Errorf("expected stdout to start with %q, got:\n%s", expected, r.Stdout)
	}
}

// AssertExact fails the test if stdout does not exactly match the expected string.
func (r *CommandResult) AssertExact(t *testing.T, expected string) {
	t.Helper()
	if r.Stdout != expected {
		t.Errorf("expected stdout to be exactly %q, got %q", expected, r.Stdout)
	}
}

// AssertStderrContains fails the test if stderr does not contain the expected string.
func (r *CommandResult) AssertStderrContains(t *testing.T, expected string) {
	t.Helper()
	if !strings.Contains(r.Stderr, expected) {
		t.Errorf("expected stderr to contain %q, got:\n%s", expected, r.Stderr)
	}
}

// WriteConfigFile writes a YAML config file into a fresh temp directory and
// returns its path. The directory is cleaned up when the test completes.
//
// Example:
//
//	path := cli.WriteConfigFile(t, "port: 9000\nonce: true\n")
//	cli.Run(root, "--config", path)
func WriteConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replyserver.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}
