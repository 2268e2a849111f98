package app

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

const (
	wsWriteWait  = 2 * time.Second
	wsClientBuf  = 16
	shutdownWait = 3 * time.Second
)

//go:embed web
var webFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebServer serves the latest events from an EventCache and streams new
// ones to websocket clients.
type WebServer struct {
	cache *EventCache

	mu      sync.Mutex
	clients map[chan sensor.Event]struct{}
}

func NewWebServer(cache *EventCache) *WebServer {
	return &WebServer{
		cache:   cache,
		clients: map[chan sensor.Event]struct{}{},
	}
}

// Broadcast queues ev for every connected client. Slow clients miss events.
func (s *WebServer) Broadcast(ev sensor.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *WebServer) addClient() chan sensor.Event {
	ch := make(chan sensor.Event, wsClientBuf)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *WebServer) removeClient(ch chan sensor.Event) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/sensors", s.handleSensors)
	mux.HandleFunc("/ws", s.handleWS)
	static, _ := fs.Sub(webFiles, "web")
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

func (s *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("quantity"); q != "" {
		quantity, err := sensor.ParseQuantity(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ev, ok := s.cache.Latest(quantity)
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, ev)
		return
	}

	events := s.cache.Snapshot()
	if len(events) == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, events)
}

func (s *WebServer) handleSensors(w http.ResponseWriter, r *http.Request) {
	ds := s.cache.Descriptors()
	if ds == nil {
		ds = []sensor.Descriptor{}
	}
	writeJSON(w, ds)
}

func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := s.addClient()
	defer s.removeClient(ch)

	// Reader goroutine only notices the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, ev := range s.cache.Snapshot() {
		if err := writeWS(conn, ev); err != nil {
			return
		}
	}
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if err := writeWS(conn, ev); err != nil {
				log.Debugf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func writeWS(conn *websocket.Conn, ev sensor.Event) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(ev)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("web: json encode error: %v", err)
	}
}

// RunWeb subscribes to the producer's topics and serves the HTTP API until ctx ends.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	cache := NewEventCache()
	srv := NewWebServer(cache)
	if err := subscribeEvents(client, TopicsFromConfig(cfg), cache, srv.Broadcast); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: srv.Handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("web server listening on %s", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
