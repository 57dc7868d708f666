package debugapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// NewHTTPHandler builds the read-only chi router: a JSON listing at
// /services, and a live event tail over WebSocket at /services/tail fed by
// tail (the builtin logger service publishes each line it handles to it).
func NewHTTPHandler(insp *Inspector, tail *Tailer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/services", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(insp.Snapshot())
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/services/tail", tail.ServeWS)

	return r
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Tailer fans a stream of diagnostic lines out to any number of connected
// WebSocket clients, as a live tail onto the debug/inspection surface.
type Tailer struct {
	register   chan chan string
	unregister chan chan string
	broadcast  chan string
}

func NewTailer() *Tailer {
	t := &Tailer{
		register:   make(chan chan string),
		unregister: make(chan chan string),
		broadcast:  make(chan string, 256),
	}
	go t.run()
	return t
}

func (t *Tailer) run() {
	clients := make(map[chan string]struct{})
	for {
		select {
		case c := <-t.register:
			clients[c] = struct{}{}
		case c := <-t.unregister:
			delete(clients, c)
			close(c)
		case msg := <-t.broadcast:
			for c := range clients {
				select {
				case c <- msg:
				default:
				}
			}
		}
	}
}

// Publish enqueues a line for delivery to every connected tail client.
func (t *Tailer) Publish(line string) {
	select {
	case t.broadcast <- line:
	default:
	}
}

func (t *Tailer) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := make(chan string, 64)
	t.register <- ch
	defer func() { t.unregister <- ch }()

	for line := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
}
