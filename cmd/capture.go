package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"otus.dev/agent/internal/capture"
	"otus.dev/agent/internal/daemon"
	"otus.dev/agent/internal/log"
)

var (
	captureIface   string
	capturePort    int
	captureLogPath string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture live TCP traffic and decode it against the protocol schema",
	Long: `capture opens a live pcap handle on an interface, filters to TCP traffic on the
given port, reassembles each connection's byte stream, and decodes messages as
they complete. Decoded messages are appended to --log for later replay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture()
	},
}

func init() {
	captureCmd.Flags().StringVar(&captureIface, "iface", "", "network interface to capture on (required)")
	captureCmd.Flags().IntVar(&capturePort, "port", 0, "TCP port to filter on (required)")
	captureCmd.Flags().StringVar(&captureLogPath, "log", "", "path to append decoded-message log output (required)")
	captureCmd.MarkFlagRequired("iface")
	captureCmd.MarkFlagRequired("port")
	captureCmd.MarkFlagRequired("log")
}

func runCapture() error {
	if captureIface == "" || capturePort == 0 || captureLogPath == "" {
		return fmt.Errorf("--iface, --port, and --log are all required")
	}

	session, err := capture.NewSession(capture.SessionOptions{
		Interface: captureIface,
		Port:      capturePort,
		LogPath:   captureLogPath,
		Schema:    loadedSchema,
	})
	if err != nil {
		return fmt.Errorf("failed to start capture session: %w", err)
	}

	logger := log.GetLogger()
	logger.WithField("iface", captureIface).WithField("port", capturePort).Info("capture starting")

	return daemon.RunUntilSignal(func(stop <-chan struct{}) error {
		return session.Run(stop)
	})
}
