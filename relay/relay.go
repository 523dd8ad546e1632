// Package relay implements the replication substrate over WebSocket: a
// server that assigns a single global order to submitted operations and
// relays them to every connected client, and a client that exposes the
// sequenced stream to a local document.
package relay

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize = 512

	frameKindWelcome = "welcome"
	frameKindOp      = "op"
)

// Frame is the wire envelope relayed between clients. A welcome frame
// tells a client the origin id the server assigned to it; an op frame
// carries a sequenced operation payload.
type Frame struct {
	Kind    string          `json:"kind"`
	Seq     uint64          `json:"seq,omitempty"`
	Origin  string          `json:"origin,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Tap is invoked for every sequenced operation, in sequence order. It lets
// the hosting server maintain its own copy of the document and feed a
// journal without being a websocket client itself.
type Tap func(seq uint64, origin string, payload []byte)

// Server sequences and relays operation frames for one board.
type Server struct {
	// The board this relay serves. Used as a metric label.
	BoardID string

	mutex   sync.Mutex
	seq     uint64
	clients map[string]*serverClient
	tap     Tap
}

func NewServer(boardID string) *Server {
	return &Server{
		BoardID: boardID,
		clients: make(map[string]*serverClient),
	}
}

func (s *Server) SetTap(fn Tap) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tap = fn
}

// Seq returns the number of operations sequenced so far.
func (s *Server) Seq() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.seq
}

// HandleConn serves one websocket client until its connection closes.
func (s *Server) HandleConn(conn *websocket.Conn) {
	origin := uuid.New().String()

	if err := websocket.JSON.Send(conn, Frame{
		Kind:   frameKindWelcome,
		Origin: origin,
	}); err != nil {
		logs.WithTag("board_id", s.BoardID).
			WithTag("origin", origin).
			Debug("sending welcome frame failed")
		return
	}

	client := &serverClient{
		origin:   origin,
		boardID:  s.BoardID,
		sendChan: make(chan Frame, sendChanSize),
	}

	s.register(client)
	instrumentClientConnected(s.BoardID)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.startSending(conn)
	}()

	// Unregistering closes the send channel, which lets the sender drain
	// and exit before the wait below.
	defer wg.Wait()
	defer func() {
		s.unregister(client)
		instrumentClientDisconnected(s.BoardID)
	}()

	for {
		var frame Frame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			logs.WithTag("board_id", s.BoardID).
				WithTag("origin", origin).
				Debug("client disconnected")
			return
		}

		if frame.Kind != frameKindOp {
			continue
		}
		s.sequence(origin, frame.Payload)
	}
}

func (s *Server) register(c *serverClient) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.clients[c.origin] = c
}

func (s *Server) unregister(c *serverClient) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.clients, c.origin)
	c.close()
}

// sequence assigns the next sequence number to the payload and fans the
// frame out. The mutex is held across numbering, fan-out and tap so every
// client's send queue and the tap observe the same total order.
func (s *Server) sequence(origin string, payload []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.seq++
	frame := Frame{
		Kind:    frameKindOp,
		Seq:     s.seq,
		Origin:  origin,
		Payload: payload,
	}

	for _, c := range s.clients {
		c.send(frame)
	}
	instrumentFrameRelayed(s.BoardID)

	if s.tap != nil {
		s.tap(frame.Seq, origin, payload)
	}
}

type serverClient struct {
	origin  string
	boardID string

	mutex    sync.Mutex
	closed   bool
	sendChan chan Frame
}

// send enqueues a frame for delivery. A client that cannot keep up has its
// frame dropped with a warning rather than stalling the whole board.
func (c *serverClient) send(frame Frame) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return
	}

	select {
	case c.sendChan <- frame:
	default:
		instrumentFrameDropped(c.boardID)
		logs.WithTag("board_id", c.boardID).
			WithTag("origin", c.origin).
			WithTag("seq", frame.Seq).
			Warn("client send queue is full, dropping frame")
	}
}

func (c *serverClient) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.sendChan)
}

func (c *serverClient) startSending(conn *websocket.Conn) {
	for frame := range c.sendChan {
		if err := websocket.JSON.Send(conn, frame); err != nil {
			logs.WithTag("board_id", c.boardID).
				WithTag("origin", c.origin).
				Debug("sending frame failed")
			return
		}
	}
}
