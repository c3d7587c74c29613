package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"annotcore/internal/corpuserr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "annotcore:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode gives scripts a distinct status per error kind.
func exitCode(err error) int {
	switch corpuserr.KindOf(err) {
	case corpuserr.KindValidation:
		return 2
	case corpuserr.KindNotFound:
		return 3
	case corpuserr.KindSchemaConflict:
		return 4
	}
	return 1
}
