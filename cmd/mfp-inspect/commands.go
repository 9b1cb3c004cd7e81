package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	mfp "github.com/glimte/mmate-mfp"
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/transports/rabbitmq"
	"github.com/spf13/cobra"
)

// sampleOptions describes the message written by the sample command
type sampleOptions struct {
	body          string
	text          string
	priority      int
	persistent    bool
	ttl           time.Duration
	correlationID string
	properties    map[string]string
	store         bool
}

func newSampleCmd(flags *globalFlags) *cobra.Command {
	opts := &sampleOptions{}

	cmd := &cobra.Command{
		Use:   "sample <file>",
		Short: "Write a sample flattened message to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer r.Close()

			env, err := buildSample(r.Factory(), opts)
			if err != nil {
				return fmt.Errorf("failed to build message: %w", err)
			}

			slices, err := r.Codec().EncodeForPersistence(env)
			if err != nil {
				return err
			}
			data := rabbitmq.Frame(slices)
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}

			if opts.store {
				if _, err := r.Persist(cmd.Context(), env); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s message %s to %s (%d slices, %d bytes)\n",
				env.Specialization(), env.GetMessageID(), args[0], len(slices), len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.body, "body", "b", "text", "Body kind: null, text, bytes, map or stream")
	cmd.Flags().StringVarP(&opts.text, "text", "t", "hello", "Body content")
	cmd.Flags().IntVarP(&opts.priority, "priority", "p", 4, "Priority 0-9, or -1 to leave unset")
	cmd.Flags().BoolVar(&opts.persistent, "persistent", true, "Mark the message persistent")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "Time to live, 0 for none")
	cmd.Flags().StringVar(&opts.correlationID, "correlation-id", "", "Correlation id")
	cmd.Flags().StringToStringVar(&opts.properties, "property", nil, "Message property as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.store, "store", false, "Also persist the message to the configured store")
	return cmd
}

var bodyKinds = map[string]contracts.JmsBodyKind{
	"null":   contracts.JmsBodyNull,
	"text":   contracts.JmsBodyText,
	"bytes":  contracts.JmsBodyBytes,
	"map":    contracts.JmsBodyMap,
	"stream": contracts.JmsBodyStream,
}

func buildSample(f *envelope.Factory, opts *sampleOptions) (*envelope.Envelope, error) {
	kind, ok := bodyKinds[strings.ToLower(opts.body)]
	if !ok {
		return nil, fmt.Errorf("unknown body kind %q", opts.body)
	}

	jms, err := f.NewJmsMessage(kind)
	if err != nil {
		return nil, err
	}
	if err := fillBody(jms, opts.text); err != nil {
		return nil, err
	}

	env := jms.Envelope()
	if opts.priority >= 0 {
		if err := env.SetPriority(opts.priority); err != nil {
			return nil, err
		}
	}

	persistence := contracts.PersistenceNonPersistent
	if opts.persistent {
		persistence = contracts.PersistencePersistent
	}
	if err := env.SetPersistence(persistence); err != nil {
		return nil, err
	}
	if err := env.SetOriginTimestamp(time.Now().UnixMilli()); err != nil {
		return nil, err
	}
	if opts.ttl > 0 {
		if err := env.SetTimeToLive(opts.ttl.Milliseconds()); err != nil {
			return nil, err
		}
	}
	if opts.correlationID != "" {
		if err := env.SetCorrelationID(opts.correlationID); err != nil {
			return nil, err
		}
	}
	for k, v := range opts.properties {
		if err := env.SetProperty(k, v); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func fillBody(jms *envelope.JmsView, text string) error {
	switch jms.BodyKind() {
	case contracts.JmsBodyText:
		tm, err := jms.AsText()
		if err != nil {
			return err
		}
		return tm.SetText(text)
	case contracts.JmsBodyBytes:
		bm, err := jms.AsBytes()
		if err != nil {
			return err
		}
		return bm.SetBytes([]byte(text))
	case contracts.JmsBodyMap:
		mm, err := jms.AsMap()
		if err != nil {
			return err
		}
		if err := mm.Set("text", text); err != nil {
			return err
		}
		return mm.Set("length", int32(len(text)))
	case contracts.JmsBodyStream:
		sm, err := jms.AsStream()
		if err != nil {
			return err
		}
		for _, word := range strings.Fields(text) {
			if err := sm.Write(word); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func newInspectCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Decode flattened messages and print their header and body",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer r.Close()

			for _, path := range args {
				env, err := readFlattened(r, path)
				if err != nil {
					return err
				}
				if err := writeSummary(cmd, summarize(env), asJSON); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	return cmd
}

func readFlattened(r *mfp.Runtime, path string) (*envelope.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	slices, err := rabbitmq.Unframe(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	env, err := r.Codec().Unflatten(slices)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

func writeSummary(cmd *cobra.Command, s messageSummary, asJSON bool) error {
	if !asJSON {
		printSummary(cmd.OutOrStdout(), s)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
