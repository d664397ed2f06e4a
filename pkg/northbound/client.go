package northbound

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridlink/tagbridge/pkg/wire"
)

// client is one websocket subscriber.
type client struct {
	subID    uint32
	clientID string
	conn     *websocket.Conn
	encoding wire.Encoding

	send      chan *wire.Frame
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(subID uint32, clientID string, conn *websocket.Conn, enc wire.Encoding, buffer int) *client {
	return &client{
		subID:    subID,
		clientID: clientID,
		conn:     conn,
		encoding: enc,
		send:     make(chan *wire.Frame, buffer),
		done:     make(chan struct{}),
	}
}

// enqueue queues a frame without blocking. It returns false when the
// client is closed or its queue is full.
func (c *client) enqueue(f *wire.Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) messageType() int {
	if c.encoding.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// writePump is the only writer on the connection.
func (s *Server) writePump(c *client) {
	defer s.wg.Done()
	defer c.close()

	ping := time.NewTicker(s.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-c.done:
			return

		case f := <-c.send:
			data, err := wire.EncodeFrame(c.encoding, f)
			if err != nil {
				s.logger.Error("frame encode failed", "client", c.clientID, "error", err)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(c.messageType(), data); err != nil {
				s.logger.Debug("websocket write failed", "client", c.clientID, "error", err)
				return
			}
			s.config.Observer.FrameSent(f.Type)
			if f.Type == wire.FrameError {
				deadline := time.Now().Add(s.config.WriteTimeout)
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, f.Error), deadline)
				return
			}

		case <-ping.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// readPump drains client messages so control frames are processed, and
// unregisters the client when the connection ends.
func (s *Server) readPump(c *client) {
	defer s.wg.Done()
	defer s.unregister(c)
	defer c.close()

	pongWait := 2 * s.config.PingInterval
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
