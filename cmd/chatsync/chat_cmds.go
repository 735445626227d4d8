package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vortelan/chatsync/internal/core"
)

func newChatsCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List the user's chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if limit == 0 {
				limit = engine.Config.PageLimit
			}
			if err := engine.Registry.FetchChats(ctx, page, limit); err != nil {
				return err
			}

			for _, chat := range engine.Registry.Chats() {
				kind := "direct"
				if chat.IsGroup {
					kind = "group"
				}
				fmt.Printf("%s  [%s]  %s  (%d members)\n", chat.ID, kind, chat.Name, len(chat.ParticipantIDs))
			}
			if engine.Registry.HasMore() {
				fmt.Printf("more available: rerun with --page %d\n", page+1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (0 uses the configured default)")
	return cmd
}

func newOpenCmd() *cobra.Command {
	var peer string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open (or create) the direct chat with a peer and print its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			chat, err := engine.Registry.AccessChat(ctx, peer)
			if err != nil {
				return err
			}

			if err := engine.Ledger.FetchPage(ctx, core.FetchPageRequest{ChatID: chat.ID, Page: 1, Limit: engine.Config.PageLimit, SortAscending: true}); err != nil {
				return err
			}
			printLedger(engine.Ledger.Snapshot(chat.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&peer, "peer", "", "peer user id")
	_ = cmd.MarkFlagRequired("peer")
	return cmd
}

func newSendCmd() *cobra.Command {
	var chatID, body string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to a chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			msg, err := engine.Ledger.Send(ctx, core.SendRequest{ChatID: chatID, Body: body})
			if err != nil {
				return err
			}
			fmt.Printf("sent %s\n", msg.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&chatID, "chat", "", "chat id")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	_ = cmd.MarkFlagRequired("chat")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newReadCmd() *cobra.Command {
	var chatID, messageID string

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Mark a chat (or a single message) as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			return engine.Receipts.MarkRead(ctx, core.MarkReadRequest{ChatID: chatID, MessageID: messageID})
		},
	}

	cmd.Flags().StringVar(&chatID, "chat", "", "chat id")
	cmd.Flags().StringVar(&messageID, "message", "", "message id")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Join a chat's room and stream live events into the local view",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, logger, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			chat, err := engine.Registry.Resolve(ctx, chatID)
			if err != nil {
				return err
			}

			if err := engine.Channel.Connect(ctx); err != nil {
				return err
			}
			if err := engine.Rooms.Select(&chat); err != nil {
				return err
			}
			if err := engine.Ledger.FetchPage(ctx, core.FetchPageRequest{ChatID: chat.ID, Page: 1, Limit: engine.Config.PageLimit, SortAscending: true}); err != nil {
				return err
			}
			printLedger(engine.Ledger.Snapshot(chat.ID))

			logger.Info().Str("chat_id", chat.ID).Msg("watching, Ctrl+C to stop")
			return engine.Channel.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&chatID, "chat", "", "chat id")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

func printLedger(led core.Ledger) {
	for _, m := range led.Messages {
		fmt.Printf("%s  %s: %s\n", m.CreatedAt.Format("15:04:05"), m.SenderID, m.Body)
	}
	if led.HasMore {
		fmt.Println("(older messages available)")
	}
}
