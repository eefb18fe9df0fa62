// Package cli provides shared test utilities for CLI testing with cobra commands.
//
// This package eliminates boilerplate when testing cobra CLI applications by
// providing helpers for command execution, output capture, and assertions.
//
// # Basic Usage
//
// Execute a command and check output:
//
//	result := cli.Run(cmd.NewRootCmd(), "--help")
//	result.AssertSuccess(t)
//	result.AssertContains(t, "Usage:")
//
// # Output Capture
//
// The Run function captures both stdout and stderr:
//
//	result := cli.Run(root, "list", "-o", "json")
//	if result.Err != nil {
//		t.Fatalf("command failed: %v", result.Err)
//	}
//	fmt.Println(result.Stdout)  // captured stdout
//	fmt.Println(result.Stderr)  // captured stderr
//
// # Long-running Commands
//
// The server command only returns when cancelled. Start runs it in the
// background and Stop cancels it:
//
//	bg := cli.Start(root, "--port", "0")
//	result := bg.Stop(t)
//
// # Assertion Methods
//
// CommandResult provides fluent assertion methods:
//
//	result := cli.Run(myCmd)
//	result.AssertSuccess(t)                         // No error
//	result.AssertError(t)                           // Expects error
//	result.AssertExitCode(t, clierror.ExitConfig)   // Process exit code
//	result.AssertContains(t, "expected text")       // Stdout contains
//	result.AssertPrefix(t, "replyserver version")   // Stdout starts with
//	result.AssertExact(t, "exact output\n")         // Stdout equals exactly
package cli
