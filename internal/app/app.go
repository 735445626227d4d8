// Package app wires the synchronization engine together: credential store,
// REST client, session gate, chat registry, room channel, message ledger,
// read-receipt tracker and the live channel.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vortelan/chatsync/internal/api"
	"github.com/vortelan/chatsync/internal/channel"
	"github.com/vortelan/chatsync/internal/config"
	"github.com/vortelan/chatsync/internal/core"
	"github.com/vortelan/chatsync/internal/store"
	"github.com/vortelan/chatsync/internal/store/sqlite"
)

// App holds the wired engine components.
type App struct {
	Config   config.Config
	Client   *api.Client
	Gate     *core.SessionGate
	Registry *core.ChatRegistry
	Rooms    *core.RoomChannel
	Ledger   *core.MessageLedger
	Receipts *core.ReadReceiptTracker
	Channel  *channel.Channel

	creds store.CredentialStore
	log   *zerolog.Logger
}

// New constructs the engine. The stored credential, if any, is installed on
// the REST client so CheckAuth can confirm the previous session.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	creds, err := sqlite.New(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("init credential store: %w", err)
	}

	client := api.New(cfg.APIBaseURL, logger, api.WithTimeout(cfg.HTTPTimeout))
	if cred, loadErr := creds.Load(ctx); loadErr != nil {
		logger.Warn().Err(loadErr).Msg("failed to load stored credential")
	} else if cred != nil {
		client.SetToken(cred.Token)
	}

	gate := core.NewSessionGate(client, creds, logger)

	ch := channel.New(cfg.WSURL, client.Token, logger)
	rooms := core.NewRoomChannel(gate, ch, logger)
	registry := core.NewChatRegistry(gate, client, rooms, logger)
	ledger := core.NewMessageLedger(gate, client, logger)
	receipts := core.NewReadReceiptTracker(gate, client, ledger, logger)

	ch.Bind(channel.Sinks{Ledger: ledger, Receipts: receipts, Rooms: rooms})

	// Logout tears down everything scoped to the session.
	gate.OnLogout(func() {
		rooms.Reset()
		registry.Reset()
		ledger.ClearAll()
	})

	return &App{
		Config:   cfg,
		Client:   client,
		Gate:     gate,
		Registry: registry,
		Rooms:    rooms,
		Ledger:   ledger,
		Receipts: receipts,
		Channel:  ch,
		creds:    creds,
		log:      logger,
	}, nil
}

// Connect brings up the live channel and starts its read loop. Blocks until
// the context is cancelled or the connection drops.
func (a *App) Connect(ctx context.Context) error {
	if err := a.Channel.Connect(ctx); err != nil {
		return err
	}
	return a.Channel.Run(ctx)
}

// Close releases held resources.
func (a *App) Close() error {
	if err := a.Channel.Close(); err != nil {
		a.log.Debug().Err(err).Msg("live channel close")
	}
	if err := a.creds.Close(); err != nil {
		return fmt.Errorf("close credential store: %w", err)
	}
	a.log.Debug().Msg("engine closed")
	return nil
}
