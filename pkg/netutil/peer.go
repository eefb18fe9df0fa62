// Package netutil holds small helpers for describing raw TCP peers and requests.
package netutil

import (
	"bytes"
	"net"
	"strings"
)

// PeerIP returns the IP portion of a connection's remote address.
// Handles IPv4 ("1.2.3.4:8080"), bracketed IPv6 ("[::1]:8080"),
// and bare IPv6 ("::1") without mangling.
func PeerIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return stripPort(addr.String())
}

// PeerLabel formats a remote address for console output as "[ip:port]".
func PeerLabel(addr net.Addr) string {
	if addr == nil {
		return "[unknown]"
	}
	return "[" + addr.String() + "]"
}

// RequestLine returns the first line of a raw request for logging.
// The bytes are never parsed as HTTP: invalid UTF-8 is replaced, surrounding
// whitespace is trimmed and only the text before the first newline is kept.
func RequestLine(raw []byte) string {
	text := strings.TrimSpace(strings.ToValidUTF8(string(raw), "\uFFFD"))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimRight(text, "\r")
}

// HasRequest reports whether a read produced anything worth logging.
func HasRequest(raw []byte) bool {
	return len(bytes.TrimSpace(raw)) > 0
}

// stripPort removes the port portion from an address string.
func stripPort(addr string) string {
	idx := strings.LastIndex(addr, ":")
	if idx == -1 {
		return addr
	}

	// IPv6 with brackets: [::1]:port
	if strings.Contains(addr, "[") {
		if closeIdx := strings.LastIndex(addr, "]"); closeIdx != -1 && closeIdx < idx {
			return addr[:idx]
		}
		return addr
	}

	// Bare IPv6 (multiple colons, no brackets): return as-is
	if strings.Count(addr, ":") > 1 {
		return addr
	}

	return addr[:idx]
}
