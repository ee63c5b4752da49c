//go:build !windows

package busybee

import (
	"os"
	"os/signal"
	"syscall"
)

const (
	sigPipeExit = 2
)

// HandleSigPipe catches SIGPIPE and exits abnormally with status code 2.
//
// systemd interprets programs exited with SIGPIPE as "successfully
// exited" because its default SuccessExitStatus= includes SIGPIPE.
// Go programs whose stdout or stderr is connected to journald receive
// SIGPIPE when journald restarts, so without this handler they would
// die without being restarted.
func HandleSigPipe() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGPIPE)
	go func() {
		<-c
		os.Exit(sigPipeExit)
	}()
}
