package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mfp "github.com/glimte/mmate-mfp"
	"github.com/glimte/mmate-mfp/health"
	"github.com/glimte/mmate-mfp/transports/rabbitmq"
	"github.com/spf13/cobra"
)

func newHealthCmd(flags *globalFlags) *cobra.Command {
	var (
		broker bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the store, the codec and optionally the broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			check := func(ctx context.Context, r *mfp.Runtime, checkers ...health.Checker) error {
				registry := health.NewRegistry(
					health.NewStoreChecker(r.Store()),
					health.NewCodecChecker(r.Factory(), r.Codec(), r.Version()),
				)
				for _, c := range checkers {
					registry.Register(c)
				}

				report := registry.Check(ctx)
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if err := enc.Encode(report); err != nil {
						return err
					}
				} else {
					printHealth(cmd.OutOrStdout(), report)
				}
				if report.Status == health.StatusUnhealthy {
					return fmt.Errorf("system is %s", report.Status)
				}
				return nil
			}

			if broker {
				return withBroker(cmd, flags, func(ctx context.Context, r *mfp.Runtime, cm *rabbitmq.ConnectionManager) error {
					return check(ctx, r, health.NewBrokerChecker(cm, r.Config().Transport.Exchange))
				})
			}

			r, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer r.Close()
			return check(cmd.Context(), r)
		},
	}

	cmd.Flags().BoolVar(&broker, "broker", false, "Also check the RabbitMQ connection")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	return cmd
}

func printHealth(w io.Writer, report health.Report) {
	fmt.Fprintf(w, "System Health: %s\n", report.Status)
	for _, res := range report.Results {
		fmt.Fprintf(w, "  %-10s %-10s %s (%s)\n", res.Name, res.Status, res.Message, res.Duration)
		if res.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", res.Error)
		}
	}
}
