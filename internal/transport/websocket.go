// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"reactive/internal/uniform"

	"github.com/gorilla/websocket"
)

// Frame is the JSON message broadcast for each snapshot. Keys match the
// shader uniform names so a browser client can assign them directly.
type Frame struct {
	Time       float64         `json:"uTime"`
	Bass       float64         `json:"uBass"`
	Mid        float64         `json:"uMid"`
	High       float64         `json:"uHigh"`
	Energy     float64         `json:"uEnergy"`
	Beat       float64         `json:"uBeat"`
	BassAccum  float64         `json:"uBassAccum"`
	BeatCount  int             `json:"uBeatCount"`
	Spectrum   uniform.Texture `json:"uSpectrum"`
	Waveform   uniform.Texture `json:"uWaveform"`
	Resolution [2]int          `json:"uResolution"`
}

// NewFrame copies a snapshot into its wire form.
func NewFrame(s *uniform.Snapshot) Frame {
	return Frame{
		Time:       s.Time,
		Bass:       s.Bass,
		Mid:        s.Mid,
		High:       s.High,
		Energy:     s.Energy,
		Beat:       s.Beat,
		BassAccum:  s.BassAccum,
		BeatCount:  s.BeatCount,
		Spectrum:   s.Spectrum,
		Waveform:   s.Waveform,
		Resolution: [2]int{s.Resolution.Width, s.Resolution.Height},
	}
}

// writeWait bounds each client write; a client that cannot take a frame in
// time is dropped.
const writeWait = 250 * time.Millisecond

// WebSocketTransport implements the Transport interface for WebSocket
// connections. Every snapshot is encoded once and broadcast to all clients;
// a slow client drops frames rather than stalling the frame loop.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	count     atomic.Int32 // len(clients), read by Send without the lock.
	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
	listener  net.Listener
}

// NewWebSocketTransport listens on addr and serves clients on /ws.
func NewWebSocketTransport(addr string) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("websocket listen on %s: %w", addr, err)
	}

	wst := newWebSocketTransport()
	wst.listener = ln
	wst.server = &http.Server{Handler: wst.Handler()}

	go func() {
		logger.Infof("websocket server listening on %s", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("websocket server error: %v", err)
		}
	}()
	return wst, nil
}

func newWebSocketTransport() *WebSocketTransport {
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			CheckOrigin: func(r *http.Request) bool {
				return true // Renderers are typically served from another origin.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
		done:      make(chan struct{}),
	}
	go wst.handleBroadcasts()
	return wst
}

// Addr returns the listen address, useful when addr used port 0.
func (wst *WebSocketTransport) Addr() net.Addr {
	if wst.listener == nil {
		return nil
	}
	return wst.listener.Addr()
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	return int(wst.count.Load())
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.count.Store(int32(total))
	wst.clientsMu.Unlock()
	logger.Infof("client %s connected, total: %d", conn.RemoteAddr(), total)

	// Clients never send; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.count.Store(int32(total))
	wst.clientsMu.Unlock()
	if ok {
		conn.Close()
		logger.Infof("client %s disconnected, total: %d", conn.RemoteAddr(), total)
	}
}

// handleBroadcasts sends messages to all connected clients. Writes happen
// outside clientsMu so a stuck client never blocks registration or Send.
func (wst *WebSocketTransport) handleBroadcasts() {
	var targets []*websocket.Conn
	for {
		select {
		case msg := <-wst.broadcast:
			targets = targets[:0]
			wst.clientsMu.Lock()
			for client := range wst.clients {
				targets = append(targets, client)
			}
			wst.clientsMu.Unlock()

			for _, client := range targets {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
					logger.Warnf("error sending to client %s: %v", client.RemoteAddr(), err)
					wst.drop(client)
				}
			}
		case <-wst.done:
			return
		}
	}
}

// Send encodes data and queues it for broadcast. Snapshots are sent as a
// Frame; anything else is encoded as-is. With no clients connected the call
// does nothing, and when the queue is full the message is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	if wst.Clients() == 0 {
		return nil
	}

	var payload any = data
	if s, ok := data.(*uniform.Snapshot); ok {
		payload = NewFrame(s)
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("websocket encode: %w", err)
	}

	select {
	case wst.broadcast <- msg:
	case <-wst.done:
	default:
		// Channel full, drop message
	}
	return nil
}

// Close shuts down the WebSocket server and disconnects every client.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		logger.Infof("closing websocket server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		clear(wst.clients)
		wst.count.Store(0)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
