package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/zapxfer/zap/internal/code"
	"github.com/zapxfer/zap/internal/protocol"
	"github.com/zapxfer/zap/internal/util"
)

// ErrRelay reports a failure signalled by or through the relay. It is fatal
// to the affected session only.
var ErrRelay = errors.New("relay error")

// Conn is a relayed session from the client side. It satisfies the same
// transport contract as a direct connection: logical messages travel as
// binary websocket frames, control traffic as JSON text.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// Connect dials the relay, registers under the hash of the transfer code,
// and blocks until the relay reports a match with the opposite role.
func Connect(ctx context.Context, relayAddr, transferCode string, role protocol.Role) (*Conn, error) {
	wsURL, err := normalizeURL(relayAddr)
	if err != nil {
		return nil, err
	}

	util.LogInfo("connecting to relay %s", wsURL)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrRelay, wsURL, err)
	}

	c := &Conn{ws: ws}
	if err := c.sendControl(Register(role, code.Hash(transferCode))); err != nil {
		ws.Close()
		return nil, err
	}

	// Abort the wait if ctx is cancelled while no peer has shown up.
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			ws.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: connection closed during registration", ErrRelay)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msg, err := ParseControl(data)
		if err != nil {
			continue
		}
		switch msg.Type {
		case MsgMatched:
			util.LogSuccess("matched with peer via relay")
			return c, nil
		case MsgError:
			ws.Close()
			return nil, fmt.Errorf("%w: %s", ErrRelay, msg.Message)
		case MsgPing:
			if err := c.sendControl(ControlMessage{Type: MsgPong}); err != nil {
				ws.Close()
				return nil, err
			}
		}
	}
}

// Send transmits one application frame through the relay.
func (c *Conn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("%w: send: %v", ErrRelay, err)
	}
	return nil
}

// Receive blocks until the next application frame arrives, answering
// control pings along the way.
func (c *Conn) Receive() ([]byte, error) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: receive: %v", ErrRelay, err)
		}
		switch msgType {
		case websocket.BinaryMessage:
			return data, nil
		case websocket.TextMessage:
			msg, err := ParseControl(data)
			if err != nil {
				continue
			}
			switch msg.Type {
			case MsgError:
				return nil, fmt.Errorf("%w: %s", ErrRelay, msg.Message)
			case MsgPing:
				if err := c.sendControl(ControlMessage{Type: MsgPong}); err != nil {
					return nil, err
				}
			}
		}
	}
}

// Close tears down the websocket, unblocking any pending Receive.
func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) sendControl(msg ControlMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, msg.Marshal()); err != nil {
		return fmt.Errorf("%w: send control: %v", ErrRelay, err)
	}
	return nil
}

// normalizeURL validates a relay address and ensures it carries a
// websocket scheme.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid relay address: %s", raw)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid relay scheme: %s", u.Scheme)
	}
	return u.String(), nil
}
