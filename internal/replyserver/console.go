package replyserver

import (
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/ChristianLindehammar/http-reply-test-server/internal/version"
	"github.com/ChristianLindehammar/http-reply-test-server/pkg/netutil"
)

var (
	headFmt = color.New(color.FgBlue, color.Bold).SprintFunc()
	okFmt   = color.New(color.FgGreen).SprintFunc()
	infoFmt = color.New(color.FgYellow).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

const rule = "================================================================================"

// Console prints human-readable progress: the startup banner, waiting dots
// and one line per connection event. It is safe for concurrent use.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	now    func() time.Time
	midDot bool
}

// NewConsole writes to w. A nil w discards output.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{out: w, now: time.Now}
}

// printf ends any run of waiting dots before printing.
func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.midDot {
		fmt.Fprintln(c.out)
		c.midDot = false
	}
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) stamp() string {
	return dimFmt("[" + c.now().Format("2006-01-02 15:04:05") + "]")
}

// Banner lists the options and the test case lookup order.
func (c *Console) Banner() {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString(headFmt(version.Banner()+" - Available Options:") + "\n")
	b.WriteString(rule + "\n")
	for _, opt := range [][2]string{
		{"-port", "Port number to listen on (default: 8000)"},
		{"-closedelay", "Delay in milliseconds before closing socket (default: 0)"},
		{"-single", "Inject single test case with specified index"},
		{"-start", "Start test case index (default: 0)"},
		{"-stop", "Stop test case index (default: max int)"},
		{"-file", "Send single file instead of test cases"},
		{"-testdir", "Directory containing test cases (default: testcases)"},
		{"-zip", "Path to zip file containing test cases"},
		{"-once", "Exit after the last test case instead of serving the default response"},
		{"-h, --help", "Show this help message and exit"},
	} {
		fmt.Fprintf(&b, "%-12s: %s\n", opt[0], opt[1])
	}
	b.WriteString(rule + "\n")
	b.WriteString(headFmt("Test Case Lookup Order:") + "\n")
	b.WriteString("1. If -file is specified, that single file will be used\n")
	b.WriteString("2. If -zip is specified, test cases will be loaded from that zip file\n")
	b.WriteString("3. Otherwise, the server will look for a file named '<testdir>.zip' (default: testcases.zip)\n")
	b.WriteString("4. If zip file is not found, the server will look in the directory specified by -testdir\n")
	b.WriteString("5. Test case files must have numeric filenames matching the -start and -stop range\n")
	b.WriteString(rule + "\n\n")
	c.printf("%s", b.String())
}

// Listening announces the bound address.
func (c *Console) Listening(addr net.Addr, cases int) {
	c.printf("%s Server listening for connections on %s (%d test cases)...\n",
		c.stamp(), okFmt(addr.String()), cases)
}

// Waiting starts a waiting line; dots follow on the same line.
func (c *Console) Waiting(index int) {
	c.printf("Waiting for connect (test case #%d)...", index)
	c.mu.Lock()
	c.midDot = true
	c.mu.Unlock()
}

// Dot marks one second spent waiting.
func (c *Console) Dot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, ".")
	c.midDot = true
}

// Connection reports an accepted connection. n > 0 numbers default connections.
func (c *Console) Connection(peer net.Addr, n int) {
	if n > 0 {
		c.printf("%s Connection #%d from %s\n", c.stamp(), n, netutil.PeerLabel(peer))
		return
	}
	c.printf("%s Connection from %s\n", c.stamp(), netutil.PeerLabel(peer))
}

// Request echoes the first line of what the client sent.
func (c *Console) Request(line string) {
	c.printf("Received request: %s\n", line)
}

// Injecting reports the case about to be written.
func (c *Console) Injecting(index, size int) {
	c.printf("Injecting testcase %s, data %d bytes\n", infoFmt(fmt.Sprintf("#%d", index)), size)
}

// DefaultSent reports the canned response.
func (c *Console) DefaultSent() {
	c.printf("Sent response: HTTP/1.1 200 OK (13 bytes)\n")
}

// ServingDefault announces the switch to the default response.
func (c *Console) ServingDefault() {
	c.printf("Server waiting for connections. Press Ctrl+C to exit.\n")
}

// ShuttingDown is printed once when the run ends.
func (c *Console) ShuttingDown() {
	c.printf("Server shutting down...\n")
}
