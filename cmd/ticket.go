package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket [conversation-id]",
	Short: "Create a support ticket from a conversation",
	Long: `Summarize an existing conversation into a structured ticket draft
(title, severity, environment, steps, FAQ references) and persist it.`,
	Args: cobra.ExactArgs(1),
	RunE: runTicket,
}

func init() {
	rootCmd.AddCommand(ticketCmd)
}

func runTicket(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	application, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	conversationID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid conversation id %q: %w", args[0], err)
	}

	msgs, err := application.Conversations.LoadMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return fmt.Errorf("conversation %s has no messages", conversationID)
	}

	merged := application.Engine.MergeHistory(msgs, nil)
	draft := application.Engine.SynthesizeTicket(ctx, merged)

	ticketID, err := application.Tickets.Insert(ctx, conversationID, draft)
	if err != nil {
		return err
	}

	fmt.Printf("Created ticket #%d\n\n%s\n", ticketID, draft.Summary)
	return nil
}
