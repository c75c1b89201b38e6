package game

// Command is an inbound room message. The set is sealed; the transport layer
// translates client events into these variants before they reach the room.
type Command interface{ isRoomCmd() }

// Guess is a win attempt. Only guesses from the current guesser are
// evaluated; anything else is treated as plain chat.
type Guess struct {
	From string
	Text string
}

type Chat struct {
	From string
	Text string
}

type Stroke struct {
	From string
	Line Line
}

// Leave tears the room down, whether from an explicit leave-room or a
// disconnect.
type Leave struct {
	From string
}

// GetState is a test-only query reflecting room state without data races.
type GetState struct {
	Reply chan State
}

// State is a point-in-time view of a room.
type State struct {
	Drawer        string
	Guesser       string
	Word          string
	TimeRemaining int
	Leaderboard   []Entry
}

func (Guess) isRoomCmd()    {}
func (Chat) isRoomCmd()     {}
func (Stroke) isRoomCmd()   {}
func (Leave) isRoomCmd()    {}
func (GetState) isRoomCmd() {}
