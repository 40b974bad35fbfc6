// Package ws is the websocket transport. Each connection reads line commands,
// dispatches them against the store, and receives its replies plus any topic
// broadcasts through a per-client send channel.
package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"

	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/protocol"
	"github.com/playgambit/backend/internal/session"
	"github.com/playgambit/backend/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server owns the client registry and the store wired to publish state
// changes back to clients.
type Server struct {
	registry *session.Registry
	store    *store.Store
}

// NewServer wires a server over the database. The expiry channel carries move
// timer firings; ConsumeExpiries must be running for timed games to resolve.
func NewServer(db *sqlx.DB, gameTypes games.TypeMap, tournamentTypes store.TournamentTypeMap, expiry chan store.TimeExpiry) *Server {
	s := &Server{registry: session.NewRegistry()}
	s.store = store.New(db, gameTypes, tournamentTypes, s.onGameChanged, s.onTournamentChanged, expiry)
	return s
}

// ConsumeExpiries resolves move timer firings until the channel closes. Stale
// firings (the game has moved on to another turn) are discarded by the store.
func (s *Server) ConsumeExpiries(expiry <-chan store.TimeExpiry) {
	for e := range expiry {
		if err := s.store.HandleExpiry(e); err != nil {
			log.Printf("[WS] expiry for game %d: %v", e.GameID, err)
		}
	}
}

type client struct {
	conn   *websocket.Conn
	addr   string
	send   chan []byte
	server *Server
}

// HandleWS upgrades an HTTP request to a websocket session.
func (s *Server) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed: %v", err)
		return
	}

	cl := &client{
		conn:   conn,
		addr:   conn.RemoteAddr().String(),
		send:   make(chan []byte, 256),
		server: s,
	}
	s.registry.AddClient(cl.addr, cl.send)

	go cl.writePump()
	cl.readPump()
}

// readPump reads commands until the connection drops, then unregisters it.
func (c *client) readPump() {
	defer func() {
		c.server.registry.RemoveClient(c.addr)
		close(c.send)
		c.conn.Close()
	}()

	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error for %s: %v", c.addr, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.server.handleMessage(c.addr, string(msg))
	}
}

// writePump writes queued messages and keepalive pings to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for %s: %v", c.addr, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage runs one command line and sends back whatever it produced.
// Commands with no reply of their own are confirmed with "okay", but only on
// the current protocol; the decision uses the protocol version as it stands
// after the command, so a "version 2" is itself confirmed.
func (s *Server) handleMessage(addr, raw string) {
	var reply *string
	cmd, err := protocol.ParseClient(raw)
	if err == nil {
		reply, err = s.dispatch(addr, cmd)
	}

	var out string
	switch {
	case err != nil:
		out = protocol.ErrorMsg(err)
	case reply != nil:
		out = *reply
	case s.registry.Protocol(addr) == protocol.Current:
		out = protocol.Okay
	default:
		return
	}
	if err := s.registry.Send(addr, out); err != nil {
		log.Printf("[WS] reply to %s failed: %v", addr, err)
	}
}
