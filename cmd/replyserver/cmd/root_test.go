package cmd

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ChristianLindehammar/http-reply-test-server/internal/replyserver"
	"github.com/ChristianLindehammar/http-reply-test-server/internal/testutil"
	"github.com/ChristianLindehammar/http-reply-test-server/internal/testutil/cli"
	"github.com/ChristianLindehammar/http-reply-test-server/internal/version"
	"github.com/ChristianLindehammar/http-reply-test-server/pkg/clierror"
)

// run executes a fresh command tree the way main does.
func run(args ...string) *cli.CommandResult {
	root := NewRootCmd()
	return cli.Run(root, NormalizeArgs(root, args)...)
}

func start(args ...string) *cli.Background {
	root := NewRootCmd()
	return cli.Start(root, NormalizeArgs(root, args)...)
}

func writeCases(t *testing.T) string {
	t.Helper()
	return testutil.WriteCaseDir(t, filepath.Join(t.TempDir(), "testcases"),
		map[string]string{"0": "A", "1": "B", "2": "C", "README": "ignored"})
}

func TestVersionCommand(t *testing.T) {
	t.Log("Test that version command shows current version")
	result := run("version")
	result.AssertSuccess(t)
	result.AssertExact(t, "replyserver version "+version.String()+"\n")
}

func TestRootHelp(t *testing.T) {
	result := run("-help")
	result.AssertSuccess(t)
	result.AssertContains(t, "replyserver")
	result.AssertContains(t, "--closedelay")
	result.AssertContains(t, "--testdir")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			result := run("completion", shell)
			result.AssertSuccess(t)
			assert.NotEmpty(t, result.Stdout)
		})
	}

	result := run("completion", "tcsh")
	result.AssertError(t)
}

func TestList_Table(t *testing.T) {
	t.Log("list resolves the directory and prints cases in index order without binding")
	dir := writeCases(t)

	result := run("list", "-testdir", dir)
	result.AssertSuccess(t)
	result.AssertPrefix(t, "INDEX")
	result.AssertContains(t, "3 test case(s) from directory "+dir)
	result.AssertNotContains(t, "README")
}

func TestList_JSONWithSingle(t *testing.T) {
	dir := writeCases(t)

	result := run("list", "-testdir", dir, "-single", "1", "-o", "json")
	result.AssertSuccess(t)

	var got struct {
		Source string `json:"source"`
		Range  string `json:"range"`
		Cases  []struct {
			Index  int    `json:"index"`
			Name   string `json:"name"`
			Size   int64  `json:"size"`
			Source string `json:"source"`
		} `json:"cases"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Stdout), &got))
	assert.Equal(t, "directory", got.Source)
	assert.Equal(t, "1-1", got.Range)
	require.Len(t, got.Cases, 1)
	assert.Equal(t, 1, got.Cases[0].Index)
	assert.Equal(t, int64(1), got.Cases[0].Size)
}

func TestList_YAMLFromZip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "testcases")
	testutil.WriteCaseZip(t, dir+".zip",
		testutil.ZipEntry{Name: "cases/7", Data: "seven"},
		testutil.ZipEntry{Name: "cases/3", Data: "three"},
	)

	result := run("list", "--testdir", dir, "--output", "yaml")
	result.AssertSuccess(t)

	var got listing
	require.NoError(t, yaml.Unmarshal([]byte(result.Stdout), &got))
	assert.Equal(t, "zip", got.Source)
	require.Len(t, got.Cases, 2)
	assert.Equal(t, 3, got.Cases[0].Index)
	assert.Equal(t, "cases/3", got.Cases[0].Name)
	assert.Equal(t, 7, got.Cases[1].Index)
}

func TestList_NothingFound(t *testing.T) {
	result := run("list", "-testdir", filepath.Join(t.TempDir(), "absent"), "-start", "5", "-stop", "9")
	result.AssertSuccess(t)
	result.AssertContains(t, "No test cases found in range 5-9")
}

func TestList_UnknownFormat(t *testing.T) {
	result := run("list", "-testdir", writeCases(t), "-o", "xml")
	result.AssertError(t)
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"port out of range", []string{"-port", "70000"}, clierror.ExitConfig},
		{"negative close delay", []string{"-closedelay", "-5"}, clierror.ExitConfig},
		{"negative start", []string{"-start", "-1"}, clierror.ExitConfig},
		{"bad log level", []string{"-log-level", "chatty"}, clierror.ExitConfig},
		{"missing config file", []string{"-config", "/nonexistent/replyserver.yaml"}, clierror.ExitConfig},
		{"unknown flag", []string{"--bogus"}, clierror.ExitGeneral},
		{"positional argument", []string{"extra"}, clierror.ExitGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := run(tt.args...)
			result.AssertError(t)
			result.AssertExitCode(t, tt.code)
		})
	}
}

func TestNegativeSingleExplainsRejection(t *testing.T) {
	result := run("-single", "-1")
	result.AssertExitCode(t, clierror.ExitConfig)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "start index -1 is negative")
	assert.Contains(t, result.Err.Error(), "only non-negative file names are test cases")
}

func TestConfigFile_UnknownKey(t *testing.T) {
	path := cli.WriteConfigFile(t, "port: 9000\ncolour: blue\n")
	result := run("--config", path)
	result.AssertExitCode(t, clierror.ExitConfig)

	var cliErr *clierror.CLIError
	require.ErrorAs(t, result.Err, &cliErr)
	assert.Equal(t, clierror.CodeConfigFileFailed, cliErr.Code)
}

func TestConfigFile_FlagsOverride(t *testing.T) {
	t.Log("Flags override the config file; the file overrides defaults")
	dir := writeCases(t)
	path := cli.WriteConfigFile(t, "test_dir: /nonexistent\nsingle: 2\n")

	result := run("list", "--config", path, "-testdir", dir, "-o", "json")
	result.AssertSuccess(t)
	result.AssertContains(t, `"range": "2-2"`)
	result.AssertContains(t, `"index": 2`)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := writeCases(t)
	t.Setenv("REPLYSERVER_TESTDIR", dir)
	path := cli.WriteConfigFile(t, "test_dir: /nonexistent\n")

	result := run("list", "--config", path)
	result.AssertSuccess(t)
	result.AssertContains(t, "3 test case(s)")
}

func TestServe_BindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := strconv.Itoa(occupied.Addr().(*net.TCPAddr).Port)

	result := run("-port", port, "-testdir", writeCases(t), "-no-color")
	result.AssertExitCode(t, clierror.ExitBind)
	result.AssertContains(t, "Test Case Lookup Order:")

	t.Log("The bind failure is reported once, by main, as a single line")
	assert.NotContains(t, result.Stdout, "address already in use")
	assert.NotContains(t, result.Stderr, "address already in use")
	formatted := clierror.FormatError(clierror.From(result.Err), "table")
	assert.NotContains(t, formatted, "\n")
	assert.Contains(t, formatted, "address already in use")
}

func TestServe_CasesThenDefaultUntilCancelled(t *testing.T) {
	t.Log("Serving A, B, C from a directory, then the default response until cancelled")
	port := testutil.FreePort(t)
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")

	bg := start("-port", strconv.Itoa(port), "-testdir", writeCases(t), "-journal", journalPath, "-no-color")

	var replies []string
	replies = append(replies, waitExchange(t, addr))
	for i := 0; i < 3; i++ {
		reply, err := testutil.Exchange(addr, testutil.HTTPGet, 3*time.Second)
		require.NoError(t, err)
		replies = append(replies, string(reply))
	}
	assert.Equal(t, []string{"A", "B", "C", replyserver.DefaultResponse}, replies)

	result := bg.Stop(t)
	result.AssertSuccess(t)
	result.AssertExitCode(t, clierror.ExitSuccess)
	result.AssertContains(t, "Received request: GET / HTTP/1.1")
	result.AssertContains(t, "Server shutting down...")
	result.AssertStderrContains(t, "found test cases in directory")

	data, err := os.ReadFile(journalPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"case.injected"`)
	assert.Contains(t, string(data), `"type":"default.served"`)
	assert.Contains(t, string(data), `"reason":"cancelled"`)
}

func TestServe_OnceWithFile(t *testing.T) {
	port := testutil.FreePort(t)
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	file := testutil.WriteFile(t, filepath.Join(t.TempDir(), "foo.bin"), "X")

	bg := start("-port", strconv.Itoa(port), "-file", file, "-once")
	assert.Equal(t, "X", waitExchange(t, addr))

	result := bg.Wait(t)
	result.AssertSuccess(t)
	result.AssertStderrContains(t, "reading data from file")
}

// waitExchange retries the first exchange until the server is listening.
// Failed dials never reach the server, so no test case is consumed.
func waitExchange(t *testing.T, addr string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			if time.Now().After(deadline) {
				t.Fatalf("%s never came up: %v", addr, err)
			}
			time.Sleep(20 * time.Millisecond)
			continue
		}
		defer conn.Close()

		require.NoError(t, conn.SetDeadline(time.Now().Add(3*time.Second)))
		_, err = io.WriteString(conn, testutil.HTTPGet)
		require.NoError(t, err)
		reply, err := io.ReadAll(conn)
		require.NoError(t, err)
		return string(reply)
	}
}
