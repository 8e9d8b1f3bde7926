package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "audiomidi/internal/log"
)

// WebSocketTransport broadcasts status payloads as JSON to every
// connected client. Sends are queued and rate limited so a slow client
// can never stall the pipeline goroutine.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server

	lastSend    time.Time
	minInterval time.Duration
}

// NewWebSocketTransport starts a broadcast server on addr serving
// WebSocket upgrades at /levels. minInterval throttles broadcasts;
// zero disables throttling.
func NewWebSocketTransport(addr string, minInterval time.Duration) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // visualizers connect from anywhere on the LAN
			},
		},
		clients:     make(map[*websocket.Conn]bool),
		broadcast:   make(chan any, 256),
		minInterval: minInterval,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/levels", wst.handleWebSocket)
	wst.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		applog.Infof("transport: WebSocket broadcaster listening on %s", addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("transport: WebSocket server: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("transport: WebSocket upgrade: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("transport: client connected, total %d", total)

	// The read loop only serves to detect disconnects; clients never
	// send anything meaningful.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.clientsMu.Lock()
				delete(wst.clients, conn)
				total := len(wst.clients)
				wst.clientsMu.Unlock()
				conn.Close()
				applog.Infof("transport: client disconnected, total %d", total)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for data := range wst.broadcast {
		wst.clientsMu.Lock()
		for client := range wst.clients {
			if err := client.WriteJSON(data); err != nil {
				applog.Warnf("transport: dropping client: %v", err)
				client.Close()
				delete(wst.clients, client)
			}
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues data for broadcast. Frames past the rate limit or beyond
// the queue capacity are dropped silently; the status stream is lossy
// by design.
func (wst *WebSocketTransport) Send(data any) error {
	now := time.Now()
	if wst.minInterval > 0 && now.Sub(wst.lastSend) < wst.minInterval {
		return nil
	}
	wst.lastSend = now

	select {
	case wst.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	close(wst.broadcast)
	return wst.server.Close()
}

var _ Transport = (*WebSocketTransport)(nil)
