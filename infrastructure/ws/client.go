package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Client is one live websocket session. It implements
// contract.Connection: the dispatcher delivers events by calling
// Consume, which hands the encoded frame to the write pump through a
// buffered channel. A full buffer drops the event for this connection
// only; the client reconciles by re-fetching history.
type Client struct {
	id      domain.ConnectionID
	userID  domain.UserID
	conn    *websocket.Conn
	service contract.IChatService
	log     *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, userID domain.UserID,
	service contract.IChatService, log *slog.Logger, sendBufferSize int) *Client {
	return &Client{
		id:      domain.ConnectionID(uuid.NewString()),
		userID:  userID,
		conn:    conn,
		service: service,
		log:     log,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() domain.ConnectionID { return c.id }
func (c *Client) UserID() domain.UserID   { return c.userID }

// Consume is called by the dispatcher during fan-out. It must not
// block on the transport: the frame is queued for the write pump, and
// a full queue or a closed connection yields a delivery error the
// dispatcher logs and isolates.
func (c *Client) Consume(ctx context.Context, e event.DomainEvent) error {
	frame, err := encodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return fmt.Errorf("%w: connection %s closed", errors.ErrDelivery, c.id)
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("%w: connection %s", errors.ErrSendBufferFull, c.id)
	}
}

// Run starts the write pump, then serves the read loop until the
// client disconnects. Cleanup is unconditional: deregistration and
// group teardown run whether the transport closed normally, the peer
// vanished, or frame handling failed.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	defer func() {
		c.close()
		c.service.Disconnect(ctx, c)
		_ = c.conn.Close()
	}()

	c.readPump(ctx)
}

// close signals the write pump and any in-flight Consume to stop.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(64 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected websocket close", "connection_id", c.id, "error", err)
			}
			return
		}
		c.handleFrame(ctx, raw)
	}
}

// handleFrame processes one inbound operation. Frames from a single
// connection are handled sequentially here, which serializes sends per
// connection: message N+1 is not persisted before message N's
// broadcast has been initiated. A failed operation answers the sender
// with an error frame and never tears the connection down.
func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	frame, err := decodeClientFrame(raw)
	if err != nil {
		c.replyError(err)
		return
	}

	switch frame.Type {
	case frameJoin:
		c.service.Join(domain.ConversationID(frame.ConversationID), c)
	case frameSend:
		if c.userID == "" {
			c.replyError(errors.ErrUnauthenticated)
			return
		}
		if _, err := c.service.Send(ctx, domain.ConversationID(frame.ConversationID), c.userID, frame.Content); err != nil {
			c.log.Warn("Send failed",
				"connection_id", c.id,
				"user_id", c.userID,
				"conversation_id", frame.ConversationID,
				"error", err)
			c.replyError(err)
		}
	case frameListOnline:
		data, err := encodeOnlineUsers(c.service.OnlineUsers())
		if err != nil {
			c.replyError(err)
			return
		}
		c.reply(data)
	}
}

func (c *Client) reply(data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.log.Warn("Reply dropped, send buffer full", "connection_id", c.id)
	}
}

func (c *Client) replyError(err error) {
	c.reply(encodeError(err))
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Write failed, closing connection", "connection_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
