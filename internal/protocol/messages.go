package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/sketchduel/sketchduel-backend/internal/game"
)

// ClientMessage is the loose inbound JSON shape. The ws handler validates it
// and translates it into a typed command before anything reaches game logic.
type ClientMessage struct {
	Type     string  `json:"type"`
	Username string  `json:"username,omitempty"`
	Message  string  `json:"message,omitempty"`
	Guess    string  `json:"guess,omitempty"`
	X1       float64 `json:"x1,omitempty"`
	Y1       float64 `json:"y1,omitempty"`
	X2       float64 `json:"x2,omitempty"`
	Y2       float64 `json:"y2,omitempty"`
}

// Inbound event names.
const (
	TypeUserJoined  = "user-joined"
	TypeDrawing     = "drawing"
	TypeChatMessage = "chat-message"
	TypeGuess       = "guess"
	TypeLeaveRoom   = "leave-room"
)

// ServerMessage is the outbound envelope: the event name plus its payload.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type gameStatePayload struct {
	DrawingUser   string `json:"drawingUser"`
	GuessingUser  string `json:"guessingUser"`
	CurrentWord   string `json:"currentWord,omitempty"`
	IsDrawingTurn bool   `json:"isDrawingTurn"`
}

type chatPayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Color    string `json:"color"`
}

type linePayload struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type leaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

// Encode wraps a game event in its wire envelope. Scalar payloads
// (your-word, timer-update) stay bare values, matching what clients expect.
func Encode(ev game.Event) ([]byte, error) {
	msg := ServerMessage{Type: ev.EventName()}

	switch e := ev.(type) {
	case game.ClearCanvas, game.StartDrawingTurn, game.StartGuessingTurn, game.DrawingTimeEnded:
		// no payload
	case game.YourWord:
		msg.Data = e.Word
	case game.TimerUpdate:
		msg.Data = e.Seconds
	case game.ConnectedUsers:
		msg.Data = e.Usernames
	case game.GameStateUpdate:
		msg.Data = gameStatePayload{
			DrawingUser:   e.DrawingUser,
			GuessingUser:  e.GuessingUser,
			CurrentWord:   e.CurrentWord,
			IsDrawingTurn: e.IsDrawingTurn,
		}
	case game.ChatMessage:
		msg.Data = chatPayload{Username: e.Username, Message: e.Message, Color: e.Color}
	case game.Draw:
		msg.Data = linePayload{X1: e.Line.X1, Y1: e.Line.Y1, X2: e.Line.X2, Y2: e.Line.Y2}
	case game.LeaderboardUpdate:
		entries := make([]leaderboardEntry, 0, len(e.Entries))
		for _, entry := range e.Entries {
			entries = append(entries, leaderboardEntry{Username: entry.Username, Wins: entry.Wins})
		}
		msg.Data = entries
	default:
		return nil, fmt.Errorf("unknown event %T", ev)
	}

	return json.Marshal(msg)
}
