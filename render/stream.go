package render

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/intact/interaction"
	"go.viam.com/intact/logging"
)

const streamWriteTimeout = 5 * time.Second

// Message is the JSON document sent to stream viewers for each publication.
type Message struct {
	Seq  int64      `json:"seq"`
	Time time.Time  `json:"time"`
	Min  [3]float64 `json:"min"`
	Max  [3]float64 `json:"max"`
}

// NewMessage converts a publication to its wire form.
func NewMessage(pub interaction.Publication) Message {
	return Message{
		Seq:  pub.Seq,
		Time: pub.Time,
		Min:  vecArray(pub.Boundary.Min.Position),
		Max:  vecArray(pub.Boundary.Max.Position),
	}
}

func vecArray(v r3.Vector) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream broadcasts publications to websocket viewers. It is both a Drawer
// and the http.Handler viewers connect to. New viewers immediately receive
// the current publication of source, if any.
type Stream struct {
	source Source
	logger logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// NewStream returns a stream seeded from source, which may be nil.
func NewStream(source Source, logger logging.Logger) *Stream {
	return &Stream{
		source:  source,
		logger:  logger,
		clients: map[*websocket.Conn]struct{}{},
	}
}

// Clients returns the number of connected viewers.
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Draw implements Drawer by sending pub to every viewer. Viewers that cannot
// be written to are dropped.
func (s *Stream) Draw(ctx context.Context, pub interaction.Publication) error {
	payload, err := json.Marshal(NewMessage(pub))
	if err != nil {
		return errors.Wrap(err, "encoding publication")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := s.writeLocked(conn, payload); err != nil {
			s.logger.Debugw("dropping viewer", "remote", conn.RemoteAddr(), "error", err)
			delete(s.clients, conn)
			_ = conn.Close()
		}
	}
	return nil
}

func (s *Stream) writeLocked(conn *websocket.Conn, payload []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// ServeHTTP upgrades the request and keeps the viewer registered until it
// disconnects.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	if err := s.register(conn); err != nil {
		s.logger.Debugw("viewer rejected", "remote", conn.RemoteAddr(), "error", err)
		_ = conn.Close()
		return
	}
	s.logger.Debugw("viewer connected", "remote", conn.RemoteAddr())
	defer s.unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugw("viewer disconnected", "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}
	}
}

func (s *Stream) register(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("stream closed")
	}
	if s.source != nil {
		if pub, ok := s.source.Current(); ok {
			payload, err := json.Marshal(NewMessage(pub))
			if err != nil {
				return err
			}
			if err := s.writeLocked(conn, payload); err != nil {
				return err
			}
		}
	}
	s.clients[conn] = struct{}{}
	return nil
}

func (s *Stream) unregister(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		_ = conn.Close()
	}
}

// Close disconnects every viewer and refuses new ones.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var err error
	for conn := range s.clients {
		err = multierr.Combine(err, conn.Close())
		delete(s.clients, conn)
	}
	return err
}
