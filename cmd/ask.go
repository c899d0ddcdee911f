package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/resolvd/resolvd/internal/engine"
)

var (
	askConversation string
	askForceTicket  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a support question",
	Long: `Ask a support question. The answer is grounded in matching FAQ
entries when retrieval confidence is high; otherwise you get a
clarifying question. Asking for a ticket (or passing --ticket)
escalates the conversation instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "existing conversation id to continue")
	askCmd.Flags().BoolVar(&askForceTicket, "ticket", false, "escalate to a ticket instead of answering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	application, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	conversationID := uuid.Nil
	if askConversation != "" {
		conversationID, err = uuid.Parse(askConversation)
		if err != nil {
			return fmt.Errorf("invalid conversation id %q: %w", askConversation, err)
		}
	}

	res, err := application.Engine.Handle(ctx, engine.Request{
		ConversationID: conversationID,
		Message:        strings.Join(args, " "),
		ForceTicket:    askForceTicket,
	})
	if err != nil {
		return err
	}

	fmt.Println(res.Reply)
	if len(res.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range res.Sources {
			fmt.Printf("  [FAQ-%d] %s (similarity %.3f)\n", s.ID, s.Question, s.Similarity)
		}
	}
	fmt.Println()
	fmt.Printf("Conversation: %s\n", res.ConversationID)
	return nil
}
