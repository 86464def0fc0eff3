// Package ws streams session events to browsers over WebSocket. Clients may
// also push compass headings and position fixes up the same connection.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Inbound message types
const (
	MessageHeading  = "heading"
	MessagePosition = "position"
)

// Message is a client to server frame
type Message struct {
	Type      string  `json:"type"`
	Heading   float64 `json:"heading,omitempty"`
	Latitude  float64 `json:"lat,omitempty"`
	Longitude float64 `json:"lng,omitempty"`
}

// Handler serves /ws/sessions/{id}
type Handler struct {
	sessions *session.Manager
}

// NewHandler creates a Handler backed by the session manager
func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// ServeHTTP upgrades the connection and relays events until either side
// goes away or the session is closed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := sess.Subscribe(sendBuffer)
	defer cancel()

	log.Debug().Str("session_id", id).Str("remote", r.RemoteAddr).Msg("WebSocket connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(conn, events)
	}()

	readPump(conn, sess)
	cancel()
	<-done

	log.Debug().Str("session_id", id).Msg("WebSocket disconnected")
}

// writePump copies session events to the connection
func writePump(conn *websocket.Conn, events <-chan session.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump applies inbound frames to the session until the connection fails
func readPump(conn *websocket.Conn, sess *session.Session) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session_id", sess.ID).Msg("WebSocket read failed")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if err := apply(sess, msg); err != nil {
			log.Debug().Err(err).Str("session_id", sess.ID).Str("type", msg.Type).Msg("Dropped WebSocket message")
		}
	}
}

var errUnknownMessage = errors.New("unknown message type")

func apply(sess *session.Session, msg Message) error {
	switch msg.Type {
	case MessageHeading:
		sess.IngestHeading(geo.NormalizeBearing(msg.Heading))
		return nil
	case MessagePosition:
		_, err := sess.UpdatePosition(geo.Point{Latitude: msg.Latitude, Longitude: msg.Longitude})
		return err
	default:
		return errUnknownMessage
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
