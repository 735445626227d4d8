// Package channel is the live-channel transport: a websocket connection
// that carries room membership commands out and message/read events in.
// Inbound events are routed into the same merge rules REST data goes
// through, so either transport arriving first converges to the same state.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vortelan/chatsync/internal/api"
	"github.com/vortelan/chatsync/internal/core"
	"github.com/vortelan/chatsync/internal/proto"
)

const writeTimeout = 10 * time.Second

// Sinks are the core components inbound events are routed into.
type Sinks struct {
	Ledger   *core.MessageLedger
	Receipts *core.ReadReceiptTracker
	Rooms    *core.RoomChannel
}

// Channel owns the websocket connection. It implements core.Emitter for
// room transitions and runs a read loop dispatching inbound events.
type Channel struct {
	url   string
	token func() string
	log   *zerolog.Logger
	sinks Sinks

	mu   sync.Mutex
	conn *websocket.Conn
}

// New creates a disconnected channel. token is read at dial time so a
// re-login picks up the fresh credential.
func New(url string, token func() string, logger *zerolog.Logger) *Channel {
	return &Channel{url: url, token: token, log: logger}
}

// Bind attaches the core components inbound events are dispatched to.
// Must be called before Run.
func (c *Channel) Bind(sinks Sinks) {
	c.sinks = sinks
}

// Connect dials the live channel, attaching the bearer token.
func (c *Channel) Connect(ctx context.Context) error {
	opts := &websocket.DialOptions{}
	if tok := c.token(); tok != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + tok}}
	}

	conn, _, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		return fmt.Errorf("dial live channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("live channel connected")
	return nil
}

// Close tears the connection down.
func (c *Channel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "bye")
}

// JoinRoom implements core.Emitter.
func (c *Channel) JoinRoom(chatID string, gen uint64) error {
	return c.write(proto.Command{Type: proto.CommandJoinRoom, Room: chatID, Gen: gen})
}

// LeaveRoom implements core.Emitter.
func (c *Channel) LeaveRoom(chatID string) error {
	return c.write(proto.Command{Type: proto.CommandLeaveRoom, Room: chatID})
}

func (c *Channel) write(cmd proto.Command) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errors.New("live channel not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, cmd)
}

// Run reads events until the context is cancelled or the connection drops.
func (c *Channel) Run(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errors.New("live channel not connected")
	}

	for {
		var event proto.Event
		if err := wsjson.Read(ctx, conn, &event); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return fmt.Errorf("read live channel: %w", err)
		}
		c.dispatch(event)
	}
}

func (c *Channel) dispatch(event proto.Event) {
	switch event.Type {
	case proto.EventJoined:
		var data proto.JoinedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			c.log.Warn().Err(err).Msg("malformed joined event")
			return
		}
		if c.sinks.Rooms != nil && !c.sinks.Rooms.ConfirmJoin(data.Room, data.Gen) {
			c.log.Debug().Str("room", data.Room).Msg("discarded stale join ack")
		}

	case proto.EventMessageNew:
		var payload api.MessagePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			c.log.Warn().Err(err).Msg("malformed message event")
			return
		}
		if c.sinks.Ledger != nil {
			c.sinks.Ledger.Ingest(core.MessageFromPayload(payload))
		}

	case proto.EventReadUpdated:
		var data proto.ReadUpdatedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			c.log.Warn().Err(err).Msg("malformed read event")
			return
		}
		if c.sinks.Receipts != nil {
			c.sinks.Receipts.Apply(data.ChatID, data.MessageID, data.UserID)
		}

	case proto.EventError:
		var data proto.ErrorData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			c.log.Warn().Err(err).Msg("malformed error event")
			return
		}
		c.log.Warn().Str("code", data.Code).Str("msg", data.Msg).Msg("live channel error")

	default:
		c.log.Debug().Str("type", event.Type).Msg("ignoring unknown event")
	}
}
