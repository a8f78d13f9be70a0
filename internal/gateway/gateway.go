// Package gateway connects to the external WhatsApp gateway over a
// WebSocket. The gateway owns transport auth, QR pairing and reconnects
// on the WhatsApp side; this client only exchanges message frames.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/brainchat/wabridge/internal/bot"
)

const (
	reconnectDelay = 5 * time.Second
	writeTimeout   = 10 * time.Second
)

// frame is the JSON message exchanged with the gateway, both directions.
type frame struct {
	Type     string `json:"type"` // "message" inbound, "send" outbound
	Tenant   string `json:"tenant,omitempty"`
	ID       string `json:"id,omitempty"`
	FromSelf bool   `json:"from_self,omitempty"`
	Peer     string `json:"peer"`
	Text     string `json:"text"`
	SentAtMs int64  `json:"sent_at_ms,omitempty"`
}

// EnvelopeHandler receives each inbound message frame.
type EnvelopeHandler func(ctx context.Context, tenant string, env bot.Envelope)

type Client struct {
	url string
	log *zap.Logger

	mu   sync.Mutex // guards conn writes and replacement
	conn *websocket.Conn
}

func NewClient(url string, log *zap.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("gateway: url must not be empty")
	}
	return &Client{url: url, log: log}, nil
}

// Run dials the gateway and pumps inbound frames to handle until ctx is
// done, reconnecting after transient failures. Each frame is handled on
// its own goroutine so a slow turn never stalls the read pump.
func (c *Client) Run(ctx context.Context, handle EnvelopeHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Warn("gateway dial failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.log.Info("gateway connected", zap.String("url", c.url))

		c.readPump(ctx, conn, handle)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn, handle EnvelopeHandler) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.log.Warn("gateway read failed, reconnecting", zap.Error(err))
			return
		}
		if f.Type != "message" || f.Tenant == "" {
			continue
		}

		env := bot.Envelope{
			ID:       f.ID,
			FromSelf: f.FromSelf,
			Peer:     f.Peer,
			Text:     f.Text,
			SentAt:   time.UnixMilli(f.SentAtMs),
		}
		go handle(ctx, f.Tenant, env)
	}
}

// Send implements bot.Transport. The client assigns the message id so
// it can be returned without waiting for a gateway ack; the gateway
// echoes it on the wire.
func (c *Client) Send(_ context.Context, peer string, text string) (string, error) {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return "", errors.New("gateway: not connected")
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	payload, err := json.Marshal(frame{Type: "send", ID: id, Peer: peer, Text: text})
	if err != nil {
		return "", err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return "", err
	}
	return id, nil
}
