package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mfp "github.com/glimte/mmate-mfp"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/interceptors"
	"github.com/glimte/mmate-mfp/transports/rabbitmq"
	"github.com/spf13/cobra"
)

func newBrokerCmd(flags *globalFlags) *cobra.Command {
	brokerCmd := &cobra.Command{
		Use:   "broker",
		Short: "Move flattened messages through RabbitMQ",
	}

	declareCmd := &cobra.Command{
		Use:   "declare",
		Short: "Declare the configured exchanges and queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBroker(cmd, flags, func(ctx context.Context, r *mfp.Runtime, cm *rabbitmq.ConnectionManager) error {
				ch, err := cm.Channel()
				if err != nil {
					return err
				}
				defer ch.Close()

				t := r.Topology()
				if err := t.Declare(ch); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Declared %s -> %s, exceptions %s -> %s\n",
					t.Exchange, t.Destination, t.ExceptionExchange, t.ExceptionQueue)
				return nil
			})
		},
	}

	var routingKey string
	sendCmd := &cobra.Command{
		Use:   "send <file>...",
		Short: "Publish flattened messages",
		Long:  "Publish flattened messages. Without --routing-key each message goes to the first hop of its forward path.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBroker(cmd, flags, func(ctx context.Context, r *mfp.Runtime, cm *rabbitmq.ConnectionManager) error {
				ch, err := cm.Channel()
				if err != nil {
					return err
				}
				defer ch.Close()

				sender := r.NewSender(ch)
				for _, path := range args {
					env, err := readFlattened(r, path)
					if err != nil {
						return err
					}
					if err := sender.Send(ctx, env, routingKey); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Sent %s from %s\n", env.GetMessageID(), path)
				}
				return nil
			})
		},
	}
	sendCmd.Flags().StringVarP(&routingKey, "routing-key", "k", "", "Routing key")

	var (
		asJSON bool
		nodeID string
	)
	watchCmd := &cobra.Command{
		Use:   "watch [queue]",
		Short: "Consume messages and print them until interrupted",
		Long:  "Consume messages from queue, or from the configured destination, printing each one. Messages are acked after printing.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBroker(cmd, flags, func(ctx context.Context, r *mfp.Runtime, cm *rabbitmq.ConnectionManager) error {
				queue := r.Config().Transport.Destination
				if len(args) == 1 {
					queue = args[0]
				}
				if queue == "" {
					return fmt.Errorf("no queue given and transport.destination is not configured")
				}

				ch, err := cm.Channel()
				if err != nil {
					return err
				}
				defer ch.Close()

				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s... Press Ctrl+C to stop\n", queue)
				chain := interceptors.NewInterceptorChain(r.Logger()).
					Add(interceptors.NewLoggingInterceptor(r.Logger())).
					Add(interceptors.NewMetricsInterceptor(r.Metrics()))
				if nodeID != "" {
					chain.Add(interceptors.NewLoopDetectionInterceptor(nodeID))
				}

				show := interceptors.MessageHandlerFunc(func(_ context.Context, env *envelope.Envelope) error {
					return writeSummary(cmd, summarize(env), asJSON)
				})
				return r.NewReceiver(ch).Consume(ctx, ch, queue, chain.Handler(show))
			})
		},
	}
	watchCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	watchCmd.Flags().StringVar(&nodeID, "node", "", "Node id stamped into fingerprints; revisits are rerouted as loops")

	brokerCmd.AddCommand(declareCmd, sendCmd, watchCmd)
	return brokerCmd
}

// withBroker runs fn with a connected broker until it returns or the process
// is interrupted
func withBroker(cmd *cobra.Command, flags *globalFlags, fn func(context.Context, *mfp.Runtime, *rabbitmq.ConnectionManager) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r, err := newRuntime(cmd, flags)
	if err != nil {
		return err
	}
	defer r.Close()

	url := r.Config().Transport.URL
	cm := rabbitmq.NewConnectionManager(url, rabbitmq.WithConnectionLogger(r.Logger()))
	if err := cm.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", rabbitmq.SanitizeURL(url), err)
	}
	defer cm.Close()

	return fn(ctx, r, cm)
}
