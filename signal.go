package busybee

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cybozu-go/log"
)

var (
	stopSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

	errSignaled = errors.New("signaled")
)

// IsSignaled returns true if err returned by Wait indicates that
// the program has received SIGINT or SIGTERM.
func IsSignaled(err error) bool {
	return err == errSignaled
}

// HandleSignal waits for SIGINT or SIGTERM and returns errSignaled.
// It should be run by Environment.Go so that a signal cancels the
// whole environment.
func HandleSignal(ctx context.Context) error {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, stopSignals...)
	defer signal.Stop(ch)

	select {
	case <-ctx.Done():
		return nil
	case s := <-ch:
		log.Warn("busybee: got signal", map[string]interface{}{
			"signal": s.String(),
		})
		return errSignaled
	}
}
