package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"otus.dev/agent/internal/log"
	"otus.dev/agent/internal/replay"
)

var (
	replayLogPath   string
	replayTarget    string
	replayMode      string
	replayTimeout   int
	replaySpeed     float64
	replayOverrides map[string]string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a captured message log against a target host",
	Long: `replay reads a decoded-message log produced by "otus capture" and re-sends the
SEND-direction messages to a target host, optionally pacing sends by their
original inter-message gaps, by response wait, or both.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay()
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayLogPath, "log", "r", "", "captured message log to replay (required)")
	replayCmd.Flags().StringVarP(&replayTarget, "target", "t", "", "target host:port (required)")
	replayCmd.Flags().StringVar(&replayMode, "mode", "timing", "pacing mode: timing|response|hybrid")
	replayCmd.Flags().IntVar(&replayTimeout, "timeout", 2000, "response wait timeout in milliseconds")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "playback speed multiplier (0 disables inter-message pacing)")
	replayCmd.Flags().StringToStringVar(&replayOverrides, "set", nil, "override a field's value for every sent record, e.g. --set account=1001 (repeatable)")
	replayCmd.MarkFlagRequired("log")
	replayCmd.MarkFlagRequired("target")
}

func runReplay() error {
	if replayLogPath == "" || replayTarget == "" {
		return fmt.Errorf("-r/--log and -t/--target are both required")
	}

	mode, err := replay.ParseMode(replayMode)
	if err != nil {
		return err
	}

	driver, err := replay.NewDriver(replay.DriverOptions{
		LogPath:   replayLogPath,
		Target:    replayTarget,
		Mode:      mode,
		Timeout:   replayTimeout,
		Speed:     replaySpeed,
		Schema:    loadedSchema,
		Overrides: replayOverrides,
	})
	if err != nil {
		return fmt.Errorf("failed to build replay driver: %w", err)
	}

	log.GetLogger().WithField("target", replayTarget).WithField("mode", replayMode).Info("replay starting")

	return driver.Run()
}
