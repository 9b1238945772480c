package daemon

import (
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otus.dev/agent/internal/log"
)

var initLoggerOnce sync.Once

func ensureLogger() {
	initLoggerOnce.Do(func() {
		log.Init(&log.LoggerConfig{Pattern: "%time [%level] %msg%n", Time: time.RFC3339, Level: "info"})
	})
}

func TestRunUntilSignalStopsOnSIGINT(t *testing.T) {
	ensureLogger()

	started := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		err := RunUntilSignal(func(stop <-chan struct{}) error {
			close(started)
			<-stop
			close(stopped)
			return nil
		})
		assert.NoError(t, err)
	}()

	<-started
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("RunUntilSignal did not close its stop channel after SIGINT")
	}
}
