package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"PulseFeed/internal/domain/models"
	drepo "PulseFeed/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Stream implements a LedgerStream backed by the Solana websocket endpoint.
// It subscribes to account notifications for a single address and surfaces
// them as LedgerNotice values; the feed uses them only as a staleness hint.
type Stream struct {
	websocketURL   string
	address        string
	commitment     string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex // guards conn and connected; also serializes writes
	conn      *websocket.Conn
	connected bool
}

// NewStream creates a new account notification stream.
func NewStream(websocketURL, address, commitment string, reconnectDelay, pingInterval time.Duration) drepo.LedgerStream {
	return &Stream{
		websocketURL:   websocketURL,
		address:        address,
		commitment:     commitment,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the websocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("solana ws connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	log.Printf("solana ws: connected")
	return nil
}

// Subscribe issues accountSubscribe for the configured address.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("solana ws not connected")
	}
	msg := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "accountSubscribe",
		Params: []interface{}{
			s.address,
			map[string]string{"commitment": s.commitment},
		},
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.address, err)
	}
	log.Printf("solana ws: subscribed %s", s.address)
	return nil
}

func (s *Stream) snapshot() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Stream) ping(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return conn.WriteMessage(websocket.PingMessage, nil)
}

type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
		} `json:"result"`
		Subscription int `json:"subscription"`
	} `json:"params"`
}

// Read streams LedgerNotice events and errors. Both channels are tied to the
// connection current at call time: the read loop sends at most one error and
// then closes both, and the ping loop exits with it, so a later Reconnect
// needs a fresh Read.
func (s *Stream) Read(ctx context.Context) (<-chan models.LedgerNotice, <-chan error) {
	notices := make(chan models.LedgerNotice, 64)
	errs := make(chan error, 1)

	conn := s.snapshot()
	if conn == nil {
		errs <- fmt.Errorf("solana ws conn nil")
		close(notices)
		close(errs)
		return notices, errs
	}

	done := make(chan struct{})

	// ping loop for this connection
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_ = s.ping(conn)
			}
		}
	}()

	// read loop
	go func() {
		defer close(errs)
		defer close(notices)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("solana ws read: %w", err)
					return
				}
				var n wsNotification
				if err := json.Unmarshal(b, &n); err != nil {
					// ignore subscription acks and other frames
					continue
				}
				if n.Method != "accountNotification" {
					continue
				}
				notice := models.LedgerNotice{Slot: n.Params.Result.Context.Slot, At: time.Now()}
				select {
				case notices <- notice:
				default:
					// drop on backpressure; a notice is only a hint
				}
			}
		}
	}()

	return notices, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the websocket connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
