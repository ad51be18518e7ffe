// Package feedtest provides a mock Binance market data server for testing.
// It serves scripted bars over both the kline websocket stream and the REST
// klines endpoint so feed clients can be exercised without the network.
package feedtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tehqua/QuantFlow/internal/types"
)

// Server replays a fixed bar script to every client. The same bars back both
// the websocket stream and the REST klines endpoint, so stream and download
// paths can be tested against identical data.
type Server struct {
	mu   sync.RWMutex
	bars []types.Bar

	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	wsMu          sync.Mutex
	wsConnections map[*websocket.Conn]bool

	streamDelay time.Duration
	stop        chan struct{}
}

// NewServer creates a server that replays the given bars in order.
func NewServer(bars []types.Bar) *Server {
	script := make([]types.Bar, len(bars))
	copy(script, bars)

	return &Server{
		bars: script,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		wsConnections: make(map[*websocket.Conn]bool),
		streamDelay:   5 * time.Millisecond,
		stop:          make(chan struct{}),
	}
}

// Start listens on the given address. Empty or ":0" picks a free port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/api/v3/klines", s.handleKlines).Methods("GET")
	router.HandleFunc("/ws/{symbol}@kline_{interval}", s.handleWebSocket)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != http.ErrServerClosed {
			fmt.Printf("feedtest server error: %v\n", serveErr)
		}
	}()

	return nil
}

// Stop shuts the server down and drops all websocket connections.
func (s *Server) Stop() error {
	close(s.stop)

	s.wsMu.Lock()
	for conn := range s.wsConnections {
		conn.Close()
	}

	s.wsConnections = make(map[*websocket.Conn]bool)
	s.wsMu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// BaseURL returns the REST base URL for the server.
func (s *Server) BaseURL() string {
	return "http://" + s.listener.Addr().String()
}

// WebSocketURL returns the websocket base URL for the server.
func (s *Server) WebSocketURL() string {
	return "ws://" + s.listener.Addr().String()
}

// SetBars replaces the bar script for subsequent connections and requests.
func (s *Server) SetBars(bars []types.Bar) {
	script := make([]types.Bar, len(bars))
	copy(script, bars)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bars = script
}

// handleKlines serves GET /api/v3/klines in the Binance array format:
// [openTime, open, high, low, close, volume, closeTime, ...].
func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	interval := r.URL.Query().Get("interval")

	if symbol == "" || interval == "" {
		http.Error(w, "Missing required parameters", http.StatusBadRequest)
		return
	}

	timeframe := types.Timeframe(interval)
	if err := timeframe.Validate(); err != nil {
		http.Error(w, "Invalid interval", http.StatusBadRequest)
		return
	}

	var startTime, endTime int64 = 0, 1<<63 - 1

	if v := r.URL.Query().Get("startTime"); v != "" {
		startTime, _ = strconv.ParseInt(v, 10, 64)
	}

	if v := r.URL.Query().Get("endTime"); v != "" {
		endTime, _ = strconv.ParseInt(v, 10, 64)
	}

	limit := 500

	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	klines := make([][]interface{}, 0, len(s.bars))

	for _, bar := range s.bars {
		openTime := bar.Time.UnixMilli()
		if openTime < startTime || openTime > endTime {
			continue
		}

		closeTime := bar.Time.Add(timeframe.Duration()).UnixMilli() - 1
		klines = append(klines, []interface{}{
			openTime,
			strconv.FormatFloat(bar.Open, 'f', 8, 64),
			strconv.FormatFloat(bar.High, 'f', 8, 64),
			strconv.FormatFloat(bar.Low, 'f', 8, 64),
			strconv.FormatFloat(bar.Close, 'f', 8, 64),
			strconv.FormatFloat(bar.Volume, 'f', 8, 64),
			closeTime,
			"0", // Quote asset volume
			0,   // Number of trades
			"0", // Taker buy base asset volume
			"0", // Taker buy quote asset volume
			"0", // Ignore
		})

		if len(klines) >= limit {
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(klines)
}

// handleWebSocket streams the scripted bars as final kline events, then
// holds the connection open until the server stops or the client leaves.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	interval := vars["interval"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.wsConnections[conn] = true
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	s.mu.RLock()
	script := make([]types.Bar, len(s.bars))
	copy(script, s.bars)
	s.mu.RUnlock()

	duration := types.Timeframe(interval).Duration()
	if duration == 0 {
		duration = time.Minute
	}

	for _, bar := range script {
		select {
		case <-s.stop:
			return
		case <-time.After(s.streamDelay):
		}

		event := map[string]interface{}{
			"e": "kline",
			"E": bar.Time.Add(duration).UnixMilli(),
			"s": bar.Symbol,
			"k": map[string]interface{}{
				"t": bar.Time.UnixMilli(),
				"T": bar.Time.Add(duration).UnixMilli() - 1,
				"s": bar.Symbol,
				"i": interval,
				"o": strconv.FormatFloat(bar.Open, 'f', 8, 64),
				"c": strconv.FormatFloat(bar.Close, 'f', 8, 64),
				"h": strconv.FormatFloat(bar.High, 'f', 8, 64),
				"l": strconv.FormatFloat(bar.Low, 'f', 8, 64),
				"v": strconv.FormatFloat(bar.Volume, 'f', 8, 64),
				"x": true,
			},
		}

		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}

	// Script exhausted. Block until shutdown so the client decides when the
	// stream ends.
	<-s.stop
}
