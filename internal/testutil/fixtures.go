// Package testutil provides testing utilities for replyserver: test case
// fixtures on disk, free ports and a raw TCP client.
package testutil

import (
	"archive/zip"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// ZipEntry is one file written into a fixture archive. Entries ending in "/"
// are written as directories.
type ZipEntry struct {
	Name string
	Data string
}

// WriteCaseDir creates dir (if needed) and writes one file per entry.
// Keys may contain "/" to create nested files.
func WriteCaseDir(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create case dir: %v", err)
	}
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("create parent of %s: %v", name, err)
		}
		if err := os.WriteFile(p, []byte(data), 0644); err != nil {
			t.Fatalf("write case %s: %v", name, err)
		}
	}
	return dir
}

// WriteCaseZip writes an archive at path with entries in the given order.
func WriteCaseZip(t *testing.T, path string, entries ...ZipEntry) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create zip parent: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("add zip entry %s: %v", e.Name, err)
		}
		if _, err := io.WriteString(w, e.Data); err != nil {
			t.Fatalf("write zip entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("finish zip: %v", err)
	}
	return path
}

// WriteFile writes a single payload file and returns its path.
func WriteFile(t *testing.T, path, data string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// FreePort finds an available TCP port by binding to port 0.
func FreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

// LoopbackAddr turns a wildcard listen address into one a client can dial.
func LoopbackAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(tcp.Port))
}

// Exchange dials addr, sends request and reads until the server closes the
// connection.
func Exchange(addr, request string, timeout time.Duration) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	if request != "" {
		if _, err := io.WriteString(conn, request); err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
	}
	reply, err := io.ReadAll(conn)
	if err != nil {
		return reply, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}

// HTTPGet is the request line and headers a typical client sends.
const HTTPGet = "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"
