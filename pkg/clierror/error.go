// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes. Cancellation by signal is a normal termination and exits with ExitSuccess.
const (
	ExitSuccess = 0 // Completed or cancelled by the user
	ExitGeneral = 1 // Unknown/unhandled error
	ExitConfig  = 2 // Invalid flags, environment or config file
	ExitBind    = 3 // Listening socket could not be opened
)

// Error codes (strings) for programmatic error handling
const (
	CodeBindFailed       = "BIND_FAILED"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeConfigFileFailed = "CONFIG_FILE_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
	ExitCode int    `json:"-"` // Not serialized, used for os.Exit
	cause    error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap returns the underlying failure, if any.
func (e *CLIError) Unwrap() error {
	return e.cause
}

// BindFailed creates an error for a listening socket that could not be opened.
func BindFailed(addr string, err error) *CLIError {
	return &CLIError{
		Code:     CodeBindFailed,
		Message:  fmt.Sprintf("cannot listen on %s: %v", addr, err),
		Hint:     "Check that the port is free or pick another one with -port",
		ExitCode: ExitBind,
		cause:    err,
	}
}

// InvalidConfig creates an error for configuration that failed validation.
func InvalidConfig(err error) *CLIError {
	return &CLIError{
		Code:     CodeInvalidConfig,
		Message:  fmt.Sprintf("invalid configuration: %v", err),
		Hint:     "Run 'replyserver --help' to see accepted flags",
		ExitCode: ExitConfig,
		cause:    err,
	}
}

// ConfigFileFailed creates an error for a config file that could not be read or parsed.
func ConfigFileFailed(path string, err error) *CLIError {
	return &CLIError{
		Code:     CodeConfigFileFailed,
		Message:  fmt.Sprintf("cannot load config file '%s': %v", path, err),
		Hint:     "Config files are YAML; unknown keys are rejected",
		ExitCode: ExitConfig,
		cause:    err,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:     CodeInternalError,
		Message:  msg,
		ExitCode: ExitGeneral,
		cause:    err,
	}
}

// From converts any error into a CLIError, keeping an existing one intact.
func From(err error) *CLIError {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return &CLIError{
		Code:     CodeInternalError,
		Message:  err.Error(),
		ExitCode: ExitGeneral,
		cause:    err,
	}
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable table format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	// Single line; the hint follows in parentheses.
	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf(" (hint: %s)", err.Hint)
	}
	return output
}

// PrintError writes the error to w in the appropriate format.
func PrintError(w io.Writer, err *CLIError, outputFormat string) {
	fmt.Fprintln(w, FormatError(err, outputFormat))
}
