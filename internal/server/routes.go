package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prashanna2005/SkillBridge/internal/signaling"
)

// Configure the websocket upgrader. Origin is left open: possession of the
// room id is the only admission control at this layer.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter builds the HTTP surface of the signaling server: the websocket
// upgrade endpoint and a health probe.
func NewRouter(hub *signaling.Hub, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Signaling server is healthy."))
	})

	r.Get("/ws", serveWs(hub, log))

	return r
}

// serveWs upgrades the HTTP connection and hands the client to the hub.
func serveWs(hub *signaling.Hub, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := signaling.NewClient(hub, conn, log)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
