package clierror

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		got      int
		expected int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitGeneral", ExitGeneral, 1},
		{"ExitConfig", ExitConfig, 2},
		{"ExitBind", ExitBind, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestBindFailed(t *testing.T) {
	t.Parallel()
	t.Log("Verifying bind failures carry the address, cause and bind exit code")

	cause := syscall.EADDRINUSE
	err := BindFailed("0.0.0.0:8000", cause)

	assert.Equal(t, CodeBindFailed, err.Code)
	assert.Equal(t, ExitBind, err.ExitCode)
	assert.Contains(t, err.Message, "0.0.0.0:8000")
	assert.Contains(t, err.Message, cause.Error())
	assert.NotEmpty(t, err.Hint)
	assert.True(t, errors.Is(err, syscall.EADDRINUSE), "cause should be reachable through Unwrap")
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	err := InvalidConfig(errors.New("port 70000 out of range"))

	assert.Equal(t, CodeInvalidConfig, err.Code)
	assert.Equal(t, ExitConfig, err.ExitCode)
	assert.Equal(t, "invalid configuration: port 70000 out of range", err.Error())
}

func TestConfigFileFailed(t *testing.T) {
	t.Parallel()

	err := ConfigFileFailed("/etc/replyserver.yaml", errors.New("field prot not found"))

	assert.Equal(t, CodeConfigFileFailed, err.Code)
	assert.Equal(t, ExitConfig, err.ExitCode)
	assert.Contains(t, err.Message, "/etc/replyserver.yaml")
	assert.Contains(t, err.Message, "field prot not found")
}

func TestInternalError(t *testing.T) {
	t.Parallel()

	t.Run("with cause", func(t *testing.T) {
		err := InternalError(errors.New("boom"))
		assert.Equal(t, "internal error: boom", err.Message)
		assert.Equal(t, ExitGeneral, err.ExitCode)
	})

	t.Run("nil cause", func(t *testing.T) {
		err := InternalError(nil)
		assert.Equal(t, "an unexpected internal error occurred", err.Message)
	})
}

func TestFrom(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})

	t.Run("wrapped CLIError is unwrapped", func(t *testing.T) {
		orig := BindFailed(":8000", errors.New("in use"))
		got := From(fmt.Errorf("serve: %w", orig))
		assert.Same(t, orig, got)
	})

	t.Run("plain error becomes general", func(t *testing.T) {
		got := From(errors.New("unknown flag: --prot"))
		assert.Equal(t, ExitGeneral, got.ExitCode)
		assert.Equal(t, "unknown flag: --prot", got.Message)
	})
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	err := BindFailed(":8000", errors.New("in use"))

	t.Run("table format is one line with code and hint", func(t *testing.T) {
		out := FormatError(err, "table")
		assert.True(t, strings.HasPrefix(out, "Error [BIND_FAILED]: cannot listen on :8000: in use"))
		assert.Contains(t, out, " (hint: ")
		assert.NotContains(t, out, "\n")
	})

	t.Run("json format omits exit code", func(t *testing.T) {
		out := FormatError(err, "json")
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, "BIND_FAILED", decoded["code"])
		_, hasExit := decoded["ExitCode"]
		assert.False(t, hasExit)
	})

	t.Run("no hint line when hint empty", func(t *testing.T) {
		out := FormatError(InternalError(nil), "table")
		assert.NotContains(t, out, "hint:")
	})
}

func TestPrintError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintError(&buf, InvalidConfig(errors.New("bad")), "table")
	assert.Equal(t, "Error [INVALID_CONFIG]: invalid configuration: bad (hint: Run 'replyserver --help' to see accepted flags)\n", buf.String())
}
