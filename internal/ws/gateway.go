package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sketchduel/sketchduel-backend/internal/game"
	"github.com/sketchduel/sketchduel-backend/internal/protocol"
)

const outboxSize = 64

// Gateway owns the live connection table and is the single game.Sender
// implementation. Sends are fire-and-forget: a full outbox drops the message
// rather than stalling a room's goroutine.
type Gateway struct {
	mu    sync.Mutex
	conns map[string]chan []byte
	log   *zap.Logger
}

func NewGateway(log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		conns: make(map[string]chan []byte),
		log:   log.Named("gateway"),
	}
}

// register creates the per-connection outbox the write pump drains.
func (g *Gateway) register(connID string) <-chan []byte {
	outbox := make(chan []byte, outboxSize)
	g.mu.Lock()
	g.conns[connID] = outbox
	g.mu.Unlock()
	return outbox
}

// unregister closes the outbox, ending the connection's write pump.
func (g *Gateway) unregister(connID string) {
	g.mu.Lock()
	outbox, ok := g.conns[connID]
	delete(g.conns, connID)
	g.mu.Unlock()
	if ok {
		close(outbox)
	}
}

// Send delivers one event to one connection. Unknown connections are a
// no-op: rooms may still emit during teardown races and that is fine.
func (g *Gateway) Send(connID string, ev game.Event) {
	payload, err := protocol.Encode(ev)
	if err != nil {
		g.log.Error("unencodable event", zap.Error(err))
		return
	}
	g.mu.Lock()
	outbox, ok := g.conns[connID]
	g.mu.Unlock()
	if !ok {
		return
	}
	select {
	case outbox <- payload:
	default:
		g.log.Debug("outbox full, dropping event",
			zap.String("conn", connID), zap.String("event", ev.EventName()))
	}
}

// Broadcast delivers one event to every live connection (the lobby-wide
// connected-users list).
func (g *Gateway) Broadcast(ev game.Event) {
	payload, err := protocol.Encode(ev)
	if err != nil {
		g.log.Error("unencodable event", zap.Error(err))
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for connID, outbox := range g.conns {
		select {
		case outbox <- payload:
		default:
			g.log.Debug("outbox full, dropping broadcast", zap.String("conn", connID))
		}
	}
}
