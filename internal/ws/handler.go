package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sketchduel/sketchduel-backend/internal/game"
	"github.com/sketchduel/sketchduel-backend/internal/matchmaker"
	"github.com/sketchduel/sketchduel-backend/internal/protocol"
	"github.com/sketchduel/sketchduel-backend/internal/user"
)

const writeTimeout = 3 * time.Second

// Drawing strokes arrive at mousemove frequency; the limiter only has to
// stop floods, not shape traffic.
const (
	inboundRate  rate.Limit = 120
	inboundBurst            = 240
)

// Handler upgrades a connection and runs its read loop, translating client
// events into matchmaker messages.
func Handler(g *Gateway, mm *matchmaker.Matchmaker, users *user.Registry, originPatterns []string, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		clog := log.With(zap.String("conn", connID))
		clog.Info("connected")

		outbox := g.register(connID)
		defer func() {
			// Order matters: the matchmaker must see the disconnect (and
			// tear down any room) before the lobby list is rebroadcast.
			g.unregister(connID)
			mm.Inbox() <- matchmaker.Disconnect{ConnID: connID}
			users.Unregister(connID)
			g.Broadcast(game.ConnectedUsers{Usernames: users.Names()})
			clog.Info("disconnected")
		}()

		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for payload := range outbox {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		limiter := rate.NewLimiter(inboundRate, inboundBurst)

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
			if !limiter.Allow() {
				continue
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				clog.Debug("bad json, dropping", zap.Error(err))
				continue
			}

			if cm.Type == protocol.TypeUserJoined {
				name := strings.TrimSpace(cm.Username)
				if name == "" {
					continue
				}
				users.Register(connID, name)
				users.ColorFor(name) // assign the color on first appearance
				clog.Info("joined", zap.String("username", name))
				g.Broadcast(game.ConnectedUsers{Usernames: users.Names()})
				mm.Inbox() <- matchmaker.Enqueue{ConnID: connID}
				continue
			}

			if msg, ok := toMatchmakerMsg(cm, connID); ok {
				mm.Inbox() <- msg
			}
		}
	}
}

// toMatchmakerMsg translates a validated client message into its typed
// command. Unknown types are dropped, never faulted.
func toMatchmakerMsg(m protocol.ClientMessage, connID string) (matchmaker.Msg, bool) {
	switch m.Type {
	case protocol.TypeDrawing:
		return matchmaker.RouteStroke{
			From: connID,
			Line: game.Line{X1: m.X1, Y1: m.Y1, X2: m.X2, Y2: m.Y2},
		}, true
	case protocol.TypeGuess:
		return matchmaker.RouteGuess{From: connID, Text: m.Guess}, true
	case protocol.TypeChatMessage:
		return matchmaker.RouteChat{From: connID, Text: m.Message}, true
	case protocol.TypeLeaveRoom:
		return matchmaker.RouteLeave{From: connID}, true
	default:
		return nil, false
	}
}
