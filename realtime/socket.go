package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cue-club-system/models"

	"github.com/gofiber/contrib/websocket"
)

const authTimeout = 5 * time.Second

// Client to server events.
const (
	EventAuthenticateMatch = "authenticate_match"
	EventJoinMatchRoom     = "join_match_room"
	EventLeaveMatchRoom    = "leave_match_room"
	EventAuthenticate      = "authenticate"
)

// SessionAuthenticator checks a participant session token against a match.
type SessionAuthenticator interface {
	AuthenticateSession(ctx context.Context, matchID, sessionToken string) (models.MemberRole, error)
}

// ManagerVerifier checks a staff access token.
type ManagerVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.Manager, error)
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type AuthResult struct {
	Success   bool   `json:"success"`
	MatchID   string `json:"matchId,omitempty"`
	Role      string `json:"role,omitempty"`
	ManagerID string `json:"managerId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// NewWebSocketHandler returns the fiber websocket handler for /ws.
func (h *Hub) NewWebSocketHandler(sessions SessionAuthenticator, managers ManagerVerifier) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		h.Serve(conn, sessions, managers)
	}
}

// Serve registers conn and processes its messages until it disconnects.
func (h *Hub) Serve(conn Conn, sessions SessionAuthenticator, managers ManagerVerifier) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), rooms: make(map[string]bool)}
	if !h.post(h.register, c) {
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	defer h.post(h.unregister, c)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug().Err(err).Msg("websocket read ended")
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.reply(c, EventError, map[string]string{"message": "malformed message"})
			continue
		}
		h.handle(c, msg, sessions, managers)
	}
}

func (h *Hub) handle(c *client, msg inbound, sessions SessionAuthenticator, managers ManagerVerifier) {
	switch msg.Event {
	case EventAuthenticateMatch:
		var req struct {
			MatchID      string `json:"matchId"`
			SessionToken string `json:"sessionToken"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.MatchID == "" || req.SessionToken == "" {
			h.reply(c, EventAuthResult, AuthResult{Message: "matchId and sessionToken are required"})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		role, err := sessions.AuthenticateSession(ctx, req.MatchID, req.SessionToken)
		if err != nil {
			h.reply(c, EventAuthResult, AuthResult{MatchID: req.MatchID, Message: "authentication failed"})
			return
		}
		h.join(c, req.MatchID)
		h.join(c, RoleRoom(string(role)))
		h.reply(c, EventAuthResult, AuthResult{Success: true, MatchID: req.MatchID, Role: string(role)})

	case EventJoinMatchRoom:
		// Read-only channel: snapshots carry no tokens, so no handshake.
		if id := matchIDFrom(msg.Data); id != "" {
			h.join(c, id)
		}

	case EventLeaveMatchRoom:
		if id := matchIDFrom(msg.Data); id != "" {
			h.part(c, id)
		}

	case EventAuthenticate:
		var req struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Token == "" {
			h.reply(c, EventAuthResult, AuthResult{Message: "token is required"})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		mgr, err := managers.VerifyToken(ctx, req.Token)
		if err != nil {
			h.reply(c, EventAuthResult, AuthResult{Message: "authentication failed"})
			return
		}
		h.join(c, ManagerRoom)
		h.join(c, UserRoom(mgr.ID))
		h.reply(c, EventAuthResult, AuthResult{Success: true, Role: "manager", ManagerID: mgr.ID})

	default:
		h.reply(c, EventError, map[string]string{"message": "unknown event " + msg.Event})
	}
}

// matchIDFrom accepts either "abc" or {"matchId": "abc"}.
func matchIDFrom(data json.RawMessage) string {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		MatchID string `json:"matchId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return strings.TrimSpace(obj.MatchID)
	}
	return ""
}
