package hostchan

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"

	"github.com/petervdpas/treebridge/internal/proto"
)

// Client is the websocket transport to a host server.
type Client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Dial connects to a host websocket endpoint such as ws://127.0.0.1:7788/ws.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial host %s", url)
	}
	return &Client{conn: conn}, nil
}

// Send frames payload for target. Write errors are logged and dropped.
func (c *Client) Send(target, payload string) {
	c.wmu.Lock()
	err := c.conn.WriteJSON(proto.Envelope{Panel: target, Body: payload})
	c.wmu.Unlock()
	if err != nil {
		log.Warnf("send to %s failed: %v", target, err)
	}
}

// Listen reads reply frames and passes each to deliver until the
// connection fails or ctx ends.
func (c *Client) Listen(ctx context.Context, deliver func(proto.ReplyEnvelope)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "read host reply")
		}
		var env proto.ReplyEnvelope
		if err := json.Unmarshal(frame, &env); err != nil {
			log.Warnf("drop frame: %v", err)
			continue
		}
		deliver(env)
	}
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.wmu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.wmu.Unlock()
	return c.conn.Close()
}
