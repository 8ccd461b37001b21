// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/event"
)

var _ event.Subscription[*auction.PurchaseRecord] = (*Server)(nil)

type Config struct {
	ReadBufferSize     int           `json:"readBufferSize"     yaml:"readBufferSize"`
	WriteBufferSize    int           `json:"writeBufferSize"    yaml:"writeBufferSize"`
	MaxPendingMessages int           `json:"maxPendingMessages" yaml:"maxPendingMessages"`
	MaxReadMessageSize int64         `json:"maxReadMessageSize" yaml:"maxReadMessageSize"`
	WriteWait          time.Duration `json:"writeWait"          yaml:"writeWait"`
	PongWait           time.Duration `json:"pongWait"           yaml:"pongWait"`
}

func NewDefaultConfig() Config {
	return Config{
		ReadBufferSize:     readBufferSize,
		WriteBufferSize:    writeBufferSize,
		MaxPendingMessages: maxPendingMessages,
		MaxReadMessageSize: maxReadMessageSize,
		WriteWait:          writeWait,
		PongWait:           pongWait,
	}
}

// Pings are sent more often than pongs are required.
func (c Config) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// Server pushes every accepted purchase record to its websocket clients as
// JSON text messages.
type Server struct {
	log      logging.Logger
	config   Config
	upgrader websocket.Upgrader
	conns    *Connections
	closed   atomic.Bool
}

func New(log logging.Logger, config Config) *Server {
	return &Server{
		log:    log,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		conns: NewConnections(),
	}
}

// ServeHTTP upgrades the request and starts the connection's pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("failed to upgrade",
			zap.Error(err),
		)
		return
	}
	conn := &Connection{
		s:      s,
		conn:   wsConn,
		send:   make(chan []byte, s.config.MaxPendingMessages),
		active: true,
	}
	s.conns.Add(conn)

	go conn.writePump()
	go conn.readPump()
}

// Publish sends [msg] to every connection and returns how many accepted it.
func (s *Server) Publish(msg []byte) int {
	sent := 0
	for _, conn := range s.conns.Conns() {
		if conn.Send(msg) {
			sent++
			continue
		}
		s.log.Verbo("dropping message to connection due to too many pending messages")
	}
	return sent
}

// Accept publishes [r].
func (s *Server) Accept(_ context.Context, r *auction.PurchaseRecord) error {
	if s.closed.Load() {
		return ErrClosed
	}
	msg, err := json.Marshal(r)
	if err != nil {
		return err
	}
	s.Publish(msg)
	return nil
}

// Len returns the number of connected clients.
func (s *Server) Len() int {
	return s.conns.Len()
}

func (s *Server) removeConnection(conn *Connection) {
	s.conns.Remove(conn)
}

// Close disconnects every client.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, conn := range s.conns.Conns() {
		conn.deactivate()
	}
	return nil
}
