package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newStoreCmd(flags *globalFlags) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Browse flattened messages in the configured store",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer r.Close()

			envs, err := r.RecoverAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(envs) == 0 {
				fmt.Fprintln(out, "No messages found")
				return nil
			}

			fmt.Fprintf(out, "%-36s %-14s %-12s %-8s\n", "Message ID", "Kind", "Persistence", "Priority")
			fmt.Fprintln(out, strings.Repeat("-", 74))
			for _, env := range envs {
				priority := "-"
				if p, ok := env.GetPriority(); ok {
					priority = fmt.Sprint(p)
				}
				fmt.Fprintf(out, "%-36s %-14s %-12s %-8s\n",
					env.GetMessageID(),
					truncate(env.Specialization().String(), 14),
					env.GetPersistence(),
					priority,
				)
			}
			return nil
		},
	}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show <message-id>",
		Short: "Recover a stored message and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid message id %q: %w", args[0], err)
			}

			r, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer r.Close()

			env, err := r.Recover(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeSummary(cmd, summarize(env), asJSON)
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	deleteCmd := &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Remove a stored message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid message id %q: %w", args[0], err)
			}

			r, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.Forget(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}

	storeCmd.AddCommand(listCmd, showCmd, deleteCmd)
	return storeCmd
}
