package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <description>",
		Short: "Classify a single business-activity description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, _, err := buildPipeline()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := orch.ProcessQuery(ctx, strings.Join(args, " "))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(struct {
				Text            string      `json:"text"`
				Intents         []string    `json:"intents"`
				Status          string      `json:"status"`
				Reason          string      `json:"reason,omitempty"`
				Classifications interface{} `json:"classifications"`
			}{
				Text:            res.Row.Text,
				Intents:         res.Intents,
				Status:          string(res.Status),
				Reason:          res.Reason,
				Classifications: res.Classifications,
			}); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return nil
		},
	}
}
