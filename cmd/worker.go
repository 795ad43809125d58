/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarf14/onboarding-tool-sub001/config"
	"github.com/sarf14/onboarding-tool-sub001/internal/mq"
	"github.com/sarf14/onboarding-tool-sub001/types"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes progress events and notifies mentors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg, os.Stderr)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bus, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if bus == nil {
			return errors.New("MQ_PROVIDER is required to run the worker")
		}
		defer bus.Close()

		logger.Info("consuming progress events", slog.String("channel", cfg.MQ.ProgressChannel))
		err = bus.Subscribe(ctx, cfg.MQ.ProgressChannel, progressNotifier(logger))
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// progressNotifier logs mentor notifications for progress events. Malformed
// payloads are dropped rather than redelivered.
func progressNotifier(logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var event types.ProgressEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("dropping malformed progress event",
				slog.String("message_id", msg.ID),
				slog.Any("error", err),
			)
			return nil
		}

		attrs := []any{
			slog.String("type", event.Type),
			slog.Int("trainee_id", event.TraineeID),
			slog.Int("day", event.Day),
			slog.Int("overall_progress", event.OverallProgress),
		}
		if event.MentorID != nil {
			attrs = append(attrs, slog.Int("mentor_id", *event.MentorID))
		}

		switch event.Type {
		case types.EventDayCompleted, types.EventDayAdvanced:
			if event.MentorID == nil {
				logger.Warn("progress milestone without mentor", attrs...)
				return nil
			}
			logger.InfoContext(ctx, "notify mentor", attrs...)
		default:
			logger.DebugContext(ctx, "progress event", attrs...)
		}
		return nil
	}
}
