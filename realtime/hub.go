package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"cue-club-system/models"

	"github.com/gofiber/contrib/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeDeadline = 5 * time.Second
	sendBuffer    = 64
)

// Event names pushed to clients.
const (
	EventMatchCreated = "match_created"
	EventMatchUpdated = "match_updated"
	EventMatchEnded   = "match_ended"
	EventMatchDeleted = "match_deleted"
	EventAuthResult   = "auth_result"
	EventError        = "error"
)

// ManagerRoom receives staff-wide notifications.
const ManagerRoom = "role_manager"

func RoleRoom(role string) string   { return "role_" + role }
func UserRoom(userID string) string { return "user_" + userID }

// Conn is the part of a websocket connection the hub uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Message is the wire frame in both directions.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type client struct {
	conn  Conn
	send  chan []byte
	rooms map[string]bool
}

type roomOp struct {
	c    *client
	room string
	join bool
}

type emitOp struct {
	room string
	data []byte
}

type directOp struct {
	c    *client
	data []byte
}

type sizeReq struct {
	room  string
	reply chan int
}

// Hub fans events out to rooms of websocket clients. All room state is
// owned by the Run loop; clients get their own writer goroutine.
type Hub struct {
	clients map[*client]bool
	rooms   map[string]map[*client]bool

	register   chan *client
	unregister chan *client
	membership chan roomOp
	emit       chan emitOp
	direct     chan directOp
	size       chan sizeReq

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	logger   zerolog.Logger
}

func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[*client]bool),
		rooms:      make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		membership: make(chan roomOp),
		emit:       make(chan emitOp, sendBuffer),
		direct:     make(chan directOp, sendBuffer),
		size:       make(chan sizeReq),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		logger:     log.With().Str("component", "hub").Logger(),
	}
	go h.run()
	return h
}

// Shutdown closes every connection and stops the loop. Emits after
// Shutdown are dropped.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.stopped
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			h.drop(c)
		case op := <-h.membership:
			if !h.clients[op.c] {
				continue
			}
			if op.join {
				if h.rooms[op.room] == nil {
					h.rooms[op.room] = make(map[*client]bool)
				}
				h.rooms[op.room][op.c] = true
				op.c.rooms[op.room] = true
			} else {
				h.leave(op.c, op.room)
			}
		case op := <-h.emit:
			for c := range h.rooms[op.room] {
				h.deliver(c, op.data)
			}
		case op := <-h.direct:
			if h.clients[op.c] {
				h.deliver(op.c, op.data)
			}
		case req := <-h.size:
			req.reply <- len(h.rooms[req.room])
		case <-h.done:
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

// deliver never blocks the loop: a client that cannot keep up is dropped.
func (h *Hub) deliver(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn().Msg("dropping slow websocket client")
		h.drop(c)
	}
}

func (h *Hub) leave(c *client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) drop(c *client) {
	if !h.clients[c] {
		return
	}
	for room := range c.rooms {
		h.leave(c, room)
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writePump(c *client) {
	defer func() {
		if err := c.conn.Close(); err != nil {
			h.logger.Debug().Err(err).Msg("websocket close")
		}
	}()
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
			h.logger.Error().Err(err).Msg(eris.ToString(eris.Wrap(err, "set write deadline"), true))
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
}

func (h *Hub) post(ch chan<- *client, c *client) bool {
	select {
	case ch <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) join(c *client, room string) {
	select {
	case h.membership <- roomOp{c: c, room: room, join: true}:
	case <-h.done:
	}
}

func (h *Hub) part(c *client, room string) {
	select {
	case h.membership <- roomOp{c: c, room: room}:
	case <-h.done:
	}
}

func (h *Hub) reply(c *client, event string, data any) {
	raw, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to encode reply")
		return
	}
	select {
	case h.direct <- directOp{c: c, data: raw}:
	case <-h.done:
	}
}

// EmitToRoom sends an event to every client in room.
func (h *Hub) EmitToRoom(room, event string, data any) error {
	raw, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return eris.Wrap(err, "must use a json serializable type for emitting events")
	}
	select {
	case h.emit <- emitOp{room: room, data: raw}:
	case <-h.done:
	}
	return nil
}

// RoomSize reports how many clients are in room.
func (h *Hub) RoomSize(room string) int {
	reply := make(chan int, 1)
	select {
	case h.size <- sizeReq{room: room, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) emitLogged(room, event string, data any) {
	if err := h.EmitToRoom(room, event, data); err != nil {
		h.logger.Error().Err(err).Str("room", room).Str("event", event).Msg(eris.ToString(err, true))
	}
}

// MatchCreated tells staff a new match exists.
func (h *Hub) MatchCreated(m *models.Match) {
	h.emitLogged(ManagerRoom, EventMatchCreated, m)
}

func (h *Hub) MatchUpdated(m *models.Match) {
	h.emitLogged(m.MatchID, EventMatchUpdated, m)
}

func (h *Hub) MatchEnded(m *models.Match) {
	h.emitLogged(m.MatchID, EventMatchEnded, m)
}

func (h *Hub) MatchDeleted(matchID string) {
	h.emitLogged(matchID, EventMatchDeleted, map[string]string{"matchId": matchID})
}
