package matchmaker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sketchduel/sketchduel-backend/internal/game"
)

// Msg is the sealed matchmaker message set.
type Msg interface{ isMatchmakerMsg() }

// Enqueue adds a connection to the waiting queue and evaluates pairing.
// No-op if the connection is already queued or already in a room.
type Enqueue struct{ ConnID string }

// Dequeue removes a connection from the waiting queue. No-op if absent.
type Dequeue struct{ ConnID string }

// Disconnect removes a connection from wherever it is: the queue, or its
// room (which then tears down). A disconnected survivor is never re-queued.
type Disconnect struct{ ConnID string }

// RouteGuess forwards a guess to the sender's room, if any.
type RouteGuess struct {
	From string
	Text string
}

// RouteChat forwards a chat message to the sender's room, if any.
type RouteChat struct {
	From string
	Text string
}

// RouteStroke forwards a drawing stroke to the sender's room, if any.
type RouteStroke struct {
	From string
	Line game.Line
}

// RouteLeave forwards an explicit leave-room to the sender's room, if any.
type RouteLeave struct{ From string }

// Counts answers the lobby status query.
type Counts struct{ Reply chan Status }

type Status struct {
	Waiting int `json:"waiting"`
	Rooms   int `json:"rooms"`
}

// Inspect is a test-only query reflecting internal state without data races.
type Inspect struct{ Reply chan View }

type View struct {
	Waiting []string
	Rooms   map[string][2]string // room id -> members
}

// roomClosed is the teardown notification a room sends from its own
// goroutine once its timer is stopped.
type roomClosed struct {
	RoomID   string
	Departed string
}

func (Enqueue) isMatchmakerMsg()     {}
func (Dequeue) isMatchmakerMsg()     {}
func (Disconnect) isMatchmakerMsg()  {}
func (RouteGuess) isMatchmakerMsg()  {}
func (RouteChat) isMatchmakerMsg()   {}
func (RouteStroke) isMatchmakerMsg() {}
func (RouteLeave) isMatchmakerMsg()  {}
func (Counts) isMatchmakerMsg()      {}
func (Inspect) isMatchmakerMsg()     {}
func (roomClosed) isMatchmakerMsg()  {}

type roomEntry struct {
	room *game.Room
	a, b string
}

// Config carries the room dependencies the matchmaker hands to every room it
// creates.
type Config struct {
	Out         game.Sender
	Users       game.Users
	Words       game.WordSource
	Clock       game.TickerFactory
	TurnSeconds int
	Log         *zap.Logger
}

// Matchmaker owns the waiting queue, the active-room table and the
// connection->room reverse index. All three are touched only by the
// matchmaker goroutine, so no half-updated state is ever observable.
type Matchmaker struct {
	inbox  chan Msg
	queue  []string
	rooms  map[string]*roomEntry
	byConn map[string]string // connection id -> room id
	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, cfg Config) *Matchmaker {
	if cfg.Clock == nil {
		cfg.Clock = game.WallClock{}
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	m := &Matchmaker{
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]*roomEntry),
		byConn: make(map[string]string),
		cfg:    cfg,
		log:    cfg.Log.Named("matchmaker"),
		ctx:    ctx,
		cancel: cancel,
	}
	go m.loop()
	return m
}

func (m *Matchmaker) Inbox() chan<- Msg { return m.inbox }

func (m *Matchmaker) loop() {
	for {
		select {
		case <-m.ctx.Done():
			return

		case msg := <-m.inbox:
			switch v := msg.(type) {
			case Enqueue:
				m.handleEnqueue(v.ConnID)
			case Dequeue:
				m.removeFromQueue(v.ConnID)
			case Disconnect:
				m.handleDisconnect(v.ConnID)
			case RouteGuess:
				m.route(v.From, game.Guess{From: v.From, Text: v.Text})
			case RouteChat:
				m.route(v.From, game.Chat{From: v.From, Text: v.Text})
			case RouteStroke:
				m.route(v.From, game.Stroke{From: v.From, Line: v.Line})
			case RouteLeave:
				m.route(v.From, game.Leave{From: v.From})
			case roomClosed:
				m.handleRoomClosed(v)
			case Counts:
				v.Reply <- Status{Waiting: len(m.queue), Rooms: len(m.rooms)}
			case Inspect:
				v.Reply <- m.view()
			}
		}
	}
}

func (m *Matchmaker) handleEnqueue(connID string) {
	if _, inRoom := m.byConn[connID]; inRoom {
		return
	}
	for _, queued := range m.queue {
		if queued == connID {
			return
		}
	}
	m.queue = append(m.queue, connID)
	m.log.Debug("enqueued", zap.String("conn", connID), zap.Int("waiting", len(m.queue)))
	m.evaluate()
}

// evaluate pairs the two longest-waiting connections into a new room, as
// long as at least two are waiting.
func (m *Matchmaker) evaluate() {
	for len(m.queue) >= 2 {
		a, b := m.queue[0], m.queue[1]
		m.queue = m.queue[2:]

		id := uuid.NewString()
		room := game.NewRoom(game.RoomConfig{
			ID:          id,
			MemberA:     a,
			MemberB:     b,
			TurnSeconds: m.cfg.TurnSeconds,
			Out:         m.cfg.Out,
			Users:       m.cfg.Users,
			Words:       m.cfg.Words,
			Clock:       m.cfg.Clock,
			OnClosed:    m.notifyClosed,
			Log:         m.cfg.Log,
		})
		m.rooms[id] = &roomEntry{room: room, a: a, b: b}
		m.byConn[a] = id
		m.byConn[b] = id
		m.log.Info("room created", zap.String("room", id),
			zap.String("memberA", a), zap.String("memberB", b))
		room.Run()
	}
}

// notifyClosed runs on the room goroutine; the inbox hands the notification
// back to the matchmaker goroutine.
func (m *Matchmaker) notifyClosed(roomID, departed string) {
	select {
	case m.inbox <- roomClosed{RoomID: roomID, Departed: departed}:
	case <-m.ctx.Done():
	}
}

func (m *Matchmaker) handleDisconnect(connID string) {
	m.removeFromQueue(connID)

	id, ok := m.byConn[connID]
	if !ok {
		return
	}
	// Forget the connection first so the roomClosed that follows can never
	// re-queue a dead connection.
	delete(m.byConn, connID)
	m.forward(id, game.Leave{From: connID})
}

func (m *Matchmaker) handleRoomClosed(v roomClosed) {
	entry, ok := m.rooms[v.RoomID]
	if !ok {
		return
	}
	delete(m.rooms, v.RoomID)

	for _, member := range [2]string{entry.a, entry.b} {
		stillHere := m.byConn[member] == v.RoomID
		delete(m.byConn, member)
		// Survivors go back to the queue; the member who left (or anyone
		// already disconnected) does not.
		if stillHere && member != v.Departed {
			m.log.Info("re-queueing survivor", zap.String("conn", member))
			m.handleEnqueue(member)
		}
	}
}

func (m *Matchmaker) route(from string, cmd game.Command) {
	id, ok := m.byConn[from]
	if !ok {
		return
	}
	m.forward(id, cmd)
}

// forward never blocks the matchmaker: a full room inbox means the room is
// either flooded or already gone, and in-room traffic is droppable.
func (m *Matchmaker) forward(roomID string, cmd game.Command) {
	entry, ok := m.rooms[roomID]
	if !ok {
		return
	}
	select {
	case entry.room.Inbox() <- cmd:
	default:
		m.log.Warn("room inbox full, dropping command", zap.String("room", roomID))
	}
}

func (m *Matchmaker) removeFromQueue(connID string) {
	for i, queued := range m.queue {
		if queued == connID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

func (m *Matchmaker) view() View {
	waiting := make([]string, len(m.queue))
	copy(waiting, m.queue)
	rooms := make(map[string][2]string, len(m.rooms))
	for id, entry := range m.rooms {
		rooms[id] = [2]string{entry.a, entry.b}
	}
	return View{Waiting: waiting, Rooms: rooms}
}
