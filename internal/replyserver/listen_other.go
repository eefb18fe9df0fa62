//go:build !unix

package replyserver

import "syscall"

// reuseAddr leaves socket options at the platform default.
func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
