package relay

import (
	"context"
	"io"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/cephopod/canvas/replication"
	"golang.org/x/net/websocket"
)

// Client is the client side of a relay connection. It implements
// replication.Substrate for a document living in this process.
type Client struct {
	conn     *websocket.Conn
	originID string

	mutex   sync.RWMutex
	deliver replication.DeliveryHandler
}

// Dial connects to a relay endpoint and waits for the server-assigned
// origin id before returning, so frames can be flagged as local from the
// first submission on.
func Dial(endpoint string) (*Client, error) {
	conn, err := websocket.Dial(endpoint, "", "http://localhost/")
	if err != nil {
		return nil, errors.New("dialing relay failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}

	var welcome Frame
	if err := websocket.JSON.Receive(conn, &welcome); err != nil {
		conn.Close()
		return nil, errors.New("receiving welcome frame failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}
	if welcome.Kind != frameKindWelcome || welcome.Origin == "" {
		conn.Close()
		return nil, errors.New("unexpected first frame from relay").
			WithTag("endpoint", endpoint).
			WithTag("kind", welcome.Kind)
	}

	return &Client{
		conn:     conn,
		originID: welcome.Origin,
	}, nil
}

// OriginID returns the origin id the relay assigned to this client.
func (c *Client) OriginID() string {
	return c.originID
}

// Submit sends an encoded operation to the relay for sequencing.
func (c *Client) Submit(payload []byte) {
	frame := Frame{
		Kind:    frameKindOp,
		Payload: payload,
	}
	if err := websocket.JSON.Send(c.conn, frame); err != nil {
		logs.Warn(errors.New("submitting operation to relay failed").
			WithTag("origin", c.originID).
			Wrap(err))
	}
}

func (c *Client) SetDeliveryHandler(fn replication.DeliveryHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.deliver = fn
}

func (c *Client) deliveryHandler() replication.DeliveryHandler {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.deliver
}

// Listen consumes sequenced frames until the context is cancelled or the
// connection closes, delivering each one to the registered handler.
func (c *Client) Listen(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		var frame Frame
		if err := websocket.JSON.Receive(c.conn, &frame); err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return errors.New("receiving relay frame failed").
				WithTag("origin", c.originID).
				Wrap(err)
		}

		if frame.Kind != frameKindOp {
			continue
		}

		deliver := c.deliveryHandler()
		if deliver == nil {
			continue
		}
		deliver(frame.Payload, frame.Origin == c.originID)
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
