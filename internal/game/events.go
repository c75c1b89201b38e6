package game

// Event is a single outbound notification addressed to one connection. Each
// variant corresponds to one named client event; the transport layer wraps
// it in a {type, data} envelope.
type Event interface {
	EventName() string
}

// Sender delivers events to connections. Sends are fire-and-forget: the room
// never blocks on, or learns about, delivery failures.
type Sender interface {
	Send(connID string, ev Event)
}

type ClearCanvas struct{}

func (ClearCanvas) EventName() string { return "clear-canvas" }

type StartDrawingTurn struct{}

func (StartDrawingTurn) EventName() string { return "start-drawing-turn" }

type StartGuessingTurn struct{}

func (StartGuessingTurn) EventName() string { return "start-guessing-turn" }

// YourWord reveals the round's secret word. Sent to the drawer only.
type YourWord struct {
	Word string
}

func (YourWord) EventName() string { return "your-word" }

type TimerUpdate struct {
	Seconds int
}

func (TimerUpdate) EventName() string { return "timer-update" }

type DrawingTimeEnded struct{}

func (DrawingTimeEnded) EventName() string { return "drawing-time-ended" }

// GameStateUpdate describes the current round to both members. CurrentWord
// is populated only in the drawer's copy.
type GameStateUpdate struct {
	DrawingUser   string
	GuessingUser  string
	CurrentWord   string
	IsDrawingTurn bool
}

func (GameStateUpdate) EventName() string { return "game-state-update" }

type ChatMessage struct {
	Username string
	Message  string
	Color    string
}

func (ChatMessage) EventName() string { return "chat-message" }

// Line is one drawing stroke segment, relayed verbatim from drawer to
// guesser. The server keeps no canvas state.
type Line struct {
	X1, Y1, X2, Y2 float64
}

type Draw struct {
	Line Line
}

func (Draw) EventName() string { return "draw" }

// Entry is one leaderboard row. The room leaderboard is ordered by wins
// descending, ties in discovery order.
type Entry struct {
	Username string
	Wins     int
}

type LeaderboardUpdate struct {
	Entries []Entry
}

func (LeaderboardUpdate) EventName() string { return "leaderboard-update" }

// ConnectedUsers is the lobby-wide username list, broadcast to every
// connection rather than to a room.
type ConnectedUsers struct {
	Usernames []string
}

func (ConnectedUsers) EventName() string { return "connected-users" }
