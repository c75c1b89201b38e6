package game

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sketchduel/sketchduel-backend/internal/user"
)

// DefaultTurnSeconds is the per-round drawing budget.
const DefaultTurnSeconds = 100

// Users resolves connection ids to display names and names to colors.
type Users interface {
	Name(connID string) (string, bool)
	ColorFor(name string) string
}

// WordSource picks the secret word for each round.
type WordSource interface {
	Pick() string
}

// RoomConfig carries everything a room needs. MemberA, MemberB, Out, Users
// and Words are required; the rest default.
type RoomConfig struct {
	ID          string
	MemberA     string
	MemberB     string
	TurnSeconds int
	Out         Sender
	Users       Users
	Words       WordSource
	Clock       TickerFactory
	// OnClosed is called exactly once from the room goroutine after the
	// timer is stopped, naming the member whose departure ended the match.
	// The owner removes the room from its table and re-queues the survivor.
	OnClosed func(roomID, departed string)
	Log      *zap.Logger
}

// Room runs one match between exactly two connections. All state is owned by
// the room goroutine; callers interact only through the inbox.
type Room struct {
	id      string
	memberA string
	memberB string

	drawer    string
	guesser   string
	word      string
	remaining int
	board     []Entry

	turnSeconds int
	inbox       chan Command
	ticker      Ticker
	clock       TickerFactory
	out         Sender
	users       Users
	words       WordSource
	onClosed    func(roomID, departed string)
	log         *zap.Logger
}

func NewRoom(cfg RoomConfig) *Room {
	if cfg.TurnSeconds <= 0 {
		cfg.TurnSeconds = DefaultTurnSeconds
	}
	if cfg.Clock == nil {
		cfg.Clock = WallClock{}
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Room{
		id:          cfg.ID,
		memberA:     cfg.MemberA,
		memberB:     cfg.MemberB,
		turnSeconds: cfg.TurnSeconds,
		inbox:       make(chan Command, 64),
		clock:       cfg.Clock,
		out:         cfg.Out,
		users:       cfg.Users,
		words:       cfg.Words,
		onClosed:    cfg.OnClosed,
		log:         cfg.Log.With(zap.String("room", cfg.ID)),
	}
}

func (r *Room) ID() string { return r.id }

// Inbox exposes the command channel to the matchmaker and tests.
func (r *Room) Inbox() chan<- Command { return r.inbox }

// Run starts the room goroutine. The first round begins immediately.
func (r *Room) Run() {
	go r.loop()
}

func (r *Room) loop() {
	r.startGame()
	for {
		select {
		case cmd := <-r.inbox:
			switch c := cmd.(type) {
			case Guess:
				r.handleGuess(c)
			case Chat:
				r.handleChat(c)
			case Stroke:
				r.handleStroke(c)
			case Leave:
				r.handleLeave(c.From)
				return
			case GetState:
				c.Reply <- r.snapshot()
			}
		case <-r.tickC():
			r.handleTick()
		}
	}
}

// tickC returns nil between rounds; a nil channel never fires in the select.
func (r *Room) tickC() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C()
}

func (r *Room) startGame() {
	if rand.IntN(2) == 0 {
		r.drawer, r.guesser = r.memberA, r.memberB
	} else {
		r.drawer, r.guesser = r.memberB, r.memberA
	}
	r.log.Info("game started",
		zap.String("drawer", r.nameOf(r.drawer)),
		zap.String("guesser", r.nameOf(r.guesser)))
	r.beginRound(fmt.Sprintf("Game started! %s is drawing, %s is guessing.",
		r.nameOf(r.drawer), r.nameOf(r.guesser)))
}

// endRound swaps roles and starts the next round. This is the sole way back
// into a drawing turn after the first round.
func (r *Room) endRound() {
	r.drawer, r.guesser = r.guesser, r.drawer
	r.beginRound("New round started! Roles have switched.")
}

// beginRound emits the round-setup sequence. Order matters: clients render
// incrementally and the drawer must see its role before the word.
func (r *Room) beginRound(system string) {
	r.word = r.words.Pick()

	r.toBoth(ClearCanvas{})

	update := GameStateUpdate{
		DrawingUser:   r.nameOf(r.drawer),
		GuessingUser:  r.nameOf(r.guesser),
		IsDrawingTurn: true,
	}
	withWord := update
	withWord.CurrentWord = r.word
	r.out.Send(r.drawer, withWord)
	r.out.Send(r.guesser, update)

	r.out.Send(r.drawer, StartDrawingTurn{})
	r.out.Send(r.drawer, YourWord{Word: r.word})
	r.out.Send(r.guesser, StartGuessingTurn{})

	r.systemMessage(system)
	r.startTimer()
}

// startTimer resets the countdown to the full budget. Any previous ticker is
// stopped first so at most one countdown is ever live per room.
func (r *Room) startTimer() {
	r.stopTimer()
	r.remaining = r.turnSeconds
	r.ticker = r.clock.NewTicker(time.Second)
}

func (r *Room) stopTimer() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Room) handleTick() {
	r.remaining--
	r.toBoth(TimerUpdate{Seconds: r.remaining})
	if r.remaining > 0 {
		return
	}
	r.stopTimer()
	r.systemMessage(fmt.Sprintf("Time's up! The word was %q.", r.word))
	r.toBoth(DrawingTimeEnded{})
	r.endRound()
}

func (r *Room) handleGuess(c Guess) {
	if c.From != r.guesser {
		// A "guess" from the drawer never ends the round; it is echoed as
		// plain chat. Non-members are dropped.
		if r.isMember(c.From) {
			r.relayChat(c.From, c.Text)
		}
		return
	}

	guess := strings.ToLower(strings.TrimSpace(c.Text))
	word := strings.ToLower(strings.TrimSpace(r.word))
	if guess != word {
		r.relayChat(c.From, c.Text)
		return
	}

	name := r.nameOf(c.From)
	r.log.Info("correct guess", zap.String("player", name), zap.String("word", r.word))
	r.systemMessage(fmt.Sprintf("%s guessed it! The word was %q.", name, r.word))
	r.recordWin(name)
	r.endRound()
}

func (r *Room) handleChat(c Chat) {
	if !r.isMember(c.From) {
		return
	}
	r.relayChat(c.From, c.Text)
}

// handleStroke relays drawer strokes to the guesser. Strokes from anyone
// else are dropped; the server is a pure relay, not a canvas.
func (r *Room) handleStroke(c Stroke) {
	if c.From != r.drawer {
		return
	}
	r.out.Send(r.guesser, Draw{Line: c.Line})
}

// handleLeave is every teardown path: explicit leave-room or disconnect.
// The ticker stops before the owner is notified, so a tick can never fire
// against a deregistered room.
func (r *Room) handleLeave(from string) {
	r.stopTimer()
	name := r.nameOf(from)
	r.log.Info("member left, closing room", zap.String("player", name))
	r.systemMessage(fmt.Sprintf("%s disconnected. Waiting for new players...", name))
	if r.onClosed != nil {
		r.onClosed(r.id, from)
	}
}

func (r *Room) recordWin(name string) {
	found := false
	for i := range r.board {
		if r.board[i].Username == name {
			r.board[i].Wins++
			found = true
			break
		}
	}
	if !found {
		r.board = append(r.board, Entry{Username: name, Wins: 1})
	}
	sort.SliceStable(r.board, func(i, j int) bool {
		return r.board[i].Wins > r.board[j].Wins
	})
	r.toBoth(LeaderboardUpdate{Entries: r.boardCopy()})
}

func (r *Room) relayChat(from, text string) {
	name := r.nameOf(from)
	r.toBoth(ChatMessage{Username: name, Message: text, Color: r.users.ColorFor(name)})
}

func (r *Room) systemMessage(text string) {
	r.toBoth(ChatMessage{Username: user.System, Message: text, Color: user.SystemColor})
}

func (r *Room) toBoth(ev Event) {
	r.out.Send(r.memberA, ev)
	r.out.Send(r.memberB, ev)
}

func (r *Room) isMember(connID string) bool {
	return connID == r.memberA || connID == r.memberB
}

func (r *Room) nameOf(connID string) string {
	name, _ := r.users.Name(connID)
	return name
}

func (r *Room) snapshot() State {
	return State{
		Drawer:        r.drawer,
		Guesser:       r.guesser,
		Word:          r.word,
		TimeRemaining: r.remaining,
		Leaderboard:   r.boardCopy(),
	}
}

func (r *Room) boardCopy() []Entry {
	board := make([]Entry, len(r.board))
	copy(board, r.board)
	return board
}
