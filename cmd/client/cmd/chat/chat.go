package chat

import (
	"fmt"

	"github.com/spf13/cobra"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
	chatdom "vgsync/internal/domain/chat"
)

// ChatCmd is the parent command for conversations.
var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Conversations with buyers and sellers",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		res := app.LoadChats(cmd.Context())
		if res.Source == client.SourceCache {
			fmt.Println("(offline: showing cached conversations)")
		}
		if len(res.Data) == 0 {
			fmt.Println("No conversations yet")
			return nil
		}
		for _, c := range res.Data {
			unread := ""
			if c.UnreadCount > 0 {
				unread = fmt.Sprintf(" [%d unread]", c.UnreadCount)
			}
			fmt.Printf("%-12s %s%s\n", c.ID, c.LastMessage, unread)
		}
		return nil
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <chat-id>",
	Short: "Show a conversation's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		res := app.LoadMessages(cmd.Context(), args[0])
		if res.Source == client.SourceCache {
			fmt.Println("(offline: showing cached messages)")
		}
		for _, m := range res.Data {
			marker := ""
			if m.Status == chatdom.StatusPending {
				marker = " ⏳"
			}
			fmt.Printf("[%s] %s: %s%s\n", m.SentAt.Format("15:04"), m.SenderID, m.Text, marker)
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <text>",
	Short: "Send a message",
	Long: `Sends a message. Offline, the message shows as pending and is
delivered on the next synchronization.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		chatID := args[0]
		text := ""
		for i, a := range args[1:] {
			if i > 0 {
				text += " "
			}
			text += a
		}

		msg, err := app.SendMessage(cmd.Context(), chatID, text)
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}

		if app.Monitor().Online() {
			fmt.Printf("✅ Message sent (%s)\n", msg.ID)
		} else {
			fmt.Printf("⏳ Message queued for delivery (%s)\n", msg.ID)
		}
		return nil
	},
}

func init() {
	ChatCmd.AddCommand(listCmd)
	ChatCmd.AddCommand(messagesCmd)
	ChatCmd.AddCommand(sendCmd)
}
