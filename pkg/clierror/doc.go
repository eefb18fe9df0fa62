// Package clierror provides structured error handling for the replyserver CLI.
//
// CLI errors carry an exit code, a user-facing message and an optional
// troubleshooting hint. Only startup failures become CLI errors; connection
// and source problems are logged by the server and never end a run.
//
// # Usage
//
//	ln, err := srv.Listen()
//	if err != nil {
//	    return clierror.BindFailed(addr, err)
//	}
package clierror
