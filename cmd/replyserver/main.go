// HTTP Reply Test Server
// Answers each TCP connection with the next pre-recorded response payload.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChristianLindehammar/http-reply-test-server/cmd/replyserver/cmd"
	"github.com/ChristianLindehammar/http-reply-test-server/pkg/clierror"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		cliErr := clierror.From(err)
		clierror.PrintError(os.Stderr, cliErr, "table")
		stop()
		os.Exit(cliErr.ExitCode)
	}
}
