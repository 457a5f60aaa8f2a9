// Package monitor exposes live layer state for operators: a WebSocket
// push of the tick statistics, a Prometheus-format /metrics endpoint,
// and a health check. It observes the layer only; no observation or
// action data passes through here.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/decisionlayer/tickbatch/pkg/brain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LayerState is the JSON payload pushed to connected clients.
type LayerState struct {
	brain.StatsSnapshot
	PendingAgents int  `json:"pending_agents"`
	Recurrent     bool `json:"recurrent"`
	MemorySize    int  `json:"memory_size"`
	ValueEstimate bool `json:"value_estimate"`
}

// Server pushes layer state to WebSocket clients and serves the metrics
// endpoints.
type Server struct {
	layer    *brain.Layer
	interval time.Duration
	log      *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a monitor over the given layer.
func New(layer *brain.Layer, interval time.Duration, log *slog.Logger) *Server {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		layer:    layer,
		interval: interval,
		log:      log,
		clients:  make(map[*websocket.Conn]bool),
		stopCh:   make(chan struct{}),
	}
}

// Register mounts the monitor endpoints on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/metrics", s.serveMetrics)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Start begins the periodic state push.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.loop()
	s.log.Info("monitor started", "push_interval", s.interval)
}

// Stop shuts down the push loop and disconnects clients. Safe to call
// more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
}

func (s *Server) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.broadcast(s.state())
		}
	}
}

func (s *Server) state() LayerState {
	sig := s.layer.Signature()
	return LayerState{
		StatsSnapshot: s.layer.Stats(),
		PendingAgents: s.layer.Pending(),
		Recurrent:     sig.HasRecurrent,
		MemorySize:    sig.MemorySize,
		ValueEstimate: sig.HasValueEstimate,
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.mu.Unlock()
	s.log.Info("monitor client connected", "total", total)

	// Read loop exists only to detect disconnects.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			remain := len(s.clients)
			s.mu.Unlock()
			conn.Close()
			s.log.Info("monitor client disconnected", "remain", remain)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) broadcast(state LayerState) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// serveMetrics writes Prometheus text-format metrics.
func (s *Server) serveMetrics(w http.ResponseWriter, r *http.Request) {
	st := s.state()
	session := st.SessionID

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP tickbatch_ticks_total Completed inference ticks\n")
	fmt.Fprintf(w, "# TYPE tickbatch_ticks_total counter\n")
	fmt.Fprintf(w, "tickbatch_ticks_total{session=%q} %d\n", session, st.TotalTicks)
	fmt.Fprintf(w, "# HELP tickbatch_requests_total Agent requests batched\n")
	fmt.Fprintf(w, "# TYPE tickbatch_requests_total counter\n")
	fmt.Fprintf(w, "tickbatch_requests_total{session=%q} %d\n", session, st.TotalRequests)
	fmt.Fprintf(w, "# HELP tickbatch_failed_ticks_total Ticks aborted by a per-tick error\n")
	fmt.Fprintf(w, "# TYPE tickbatch_failed_ticks_total counter\n")
	fmt.Fprintf(w, "tickbatch_failed_ticks_total{session=%q} %d\n", session, st.FailedTicks)
	fmt.Fprintf(w, "# HELP tickbatch_external_ticks_total Ticks skipped under external control\n")
	fmt.Fprintf(w, "# TYPE tickbatch_external_ticks_total counter\n")
	fmt.Fprintf(w, "tickbatch_external_ticks_total{session=%q} %d\n", session, st.ExternalTicks)
	fmt.Fprintf(w, "# HELP tickbatch_last_batch_size Manifest size of the last tick\n")
	fmt.Fprintf(w, "# TYPE tickbatch_last_batch_size gauge\n")
	fmt.Fprintf(w, "tickbatch_last_batch_size{session=%q} %d\n", session, st.LastBatchSize)
	fmt.Fprintf(w, "# HELP tickbatch_avg_tick_micros Moving average tick latency in microseconds\n")
	fmt.Fprintf(w, "# TYPE tickbatch_avg_tick_micros gauge\n")
	fmt.Fprintf(w, "tickbatch_avg_tick_micros{session=%q} %d\n", session, st.AvgTickMicros)
	fmt.Fprintf(w, "# HELP tickbatch_pending_agents Agents with a queued request\n")
	fmt.Fprintf(w, "# TYPE tickbatch_pending_agents gauge\n")
	fmt.Fprintf(w, "tickbatch_pending_agents{session=%q} %d\n", session, st.PendingAgents)
}
