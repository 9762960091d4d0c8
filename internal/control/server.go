// ABOUTME: WebSocket control server forwarding JSON commands to the Manager
// ABOUTME: Send-only channel: remote failures are logged, never written back
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Factorio-Access/launcher-audio/internal/discovery"
)

// Submitter accepts one JSON command. Validation failures come back as
// errors; they are logged per-connection and otherwise dropped, since
// the control channel is one-way.
type Submitter interface {
	Submit(cmd interface{}) error
}

// Config configures the control server.
type Config struct {
	// Addr is the listen address, e.g. ":8973".
	Addr string
	// Advertise publishes the endpoint over mDNS.
	Advertise bool
	// Name is the mDNS instance name when advertising.
	Name string
}

// Server accepts WebSocket connections on /control and forwards each
// text message to the submitter as one command.
type Server struct {
	config   Config
	submit   Submitter
	upgrader websocket.Upgrader

	httpServer *http.Server
	advertiser *discovery.Advertiser
	listenAddr net.Addr

	mu       sync.Mutex
	conns    map[string]*websocket.Conn
	shutdown bool
	wg       sync.WaitGroup
}

// New creates a control server over a submitter.
func New(config Config, submit Submitter) *Server {
	return &Server{
		config: config,
		submit: submit,
		upgrader: websocket.Upgrader{
			// Senders are local tools, not browsers; accept any origin
			// on the trusted network.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*websocket.Conn),
	}
}

// Start begins listening. It returns once the listener is bound, so the
// port is live (and discoverable) when it returns.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/control", s.handleWebSocket)

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listenAddr = ln.Addr()

	s.httpServer = &http.Server{Handler: mux}
	go func() {
		if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Control server error: %v", err)
		}
	}()

	log.Printf("Control server listening on %s", s.listenAddr)

	if s.config.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		adv, err := discovery.Advertise(s.config.Name, port)
		if err != nil {
			log.Printf("Failed to advertise control endpoint: %v", err)
		} else {
			s.advertiser = adv
		}
	}

	return nil
}

// Addr returns the bound listen address, for tests and logs.
func (s *Server) Addr() net.Addr {
	return s.listenAddr
}

// Stop closes the listener and all live connections.
func (s *Server) Stop() {
	if s.advertiser != nil {
		s.advertiser.Stop()
	}

	s.mu.Lock()
	s.shutdown = true
	for _, conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("Control server shutdown error: %v", err)
		}
	}

	s.wg.Wait()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	id := uuid.New().String()

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[id] = conn
	s.wg.Add(1)
	s.mu.Unlock()

	log.Printf("Control connection %s from %s", id, r.RemoteAddr)
	go s.readLoop(id, conn)
}

// readLoop forwards each text message as one command until the
// connection drops. Nothing is ever written back.
func (s *Server) readLoop(id string, conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		conn.Close()
		s.wg.Done()
		log.Printf("Control connection %s closed", id)
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Control connection %s read error: %v", id, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			log.Printf("Control connection %s: ignoring non-text message", id)
			continue
		}

		if err := s.submit.Submit(data); err != nil {
			log.Printf("Control connection %s: rejected command: %v", id, err)
		}
	}
}
