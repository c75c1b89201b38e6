package game

import (
	"sync"
	"testing"
	"time"

	"github.com/sketchduel/sketchduel-backend/internal/user"
)

const (
	connA = "conn-a"
	connB = "conn-b"
)

// --- fakes ---

type sentEvent struct {
	to string
	ev Event
}

type captureSender struct {
	ch chan sentEvent
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan sentEvent, 256)}
}

func (s *captureSender) Send(to string, ev Event) {
	s.ch <- sentEvent{to: to, ev: ev}
}

type fakeUsers struct {
	names map[string]string
}

func (f fakeUsers) Name(connID string) (string, bool) {
	name, ok := f.names[connID]
	return name, ok
}

func (f fakeUsers) ColorFor(name string) string {
	if name == user.System {
		return user.SystemColor
	}
	return "#123456"
}

type fixedWord string

func (w fixedWord) Pick() string { return string(w) }

// manualTicker lets tests drive round ticks deterministically. The channel
// is unbuffered so tick() returns only once the room consumed the tick.
type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *manualTicker) tick() { m.ch <- time.Now() }

type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	tk := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, tk)
	return tk
}

func (c *manualClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *manualClock) at(i int) *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[i]
}

func (c *manualClock) current() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

// --- helpers ---

func newTestRoom(t *testing.T, turnSeconds int) (*Room, *captureSender, *manualClock, chan string) {
	t.Helper()
	out := newCaptureSender()
	clock := &manualClock{}
	closed := make(chan string, 1)
	r := NewRoom(RoomConfig{
		ID:          "room-1",
		MemberA:     connA,
		MemberB:     connB,
		TurnSeconds: turnSeconds,
		Out:         out,
		Users:       fakeUsers{names: map[string]string{connA: "Alice", connB: "Bob"}},
		Words:       fixedWord("apple"),
		Clock:       clock,
		OnClosed:    func(_, departed string) { closed <- departed },
	})
	r.Run()
	return r, out, clock, closed
}

func recvEvent(t *testing.T, ch <-chan sentEvent, within time.Duration) sentEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return sentEvent{} // unreachable
	}
}

func recvNoEvent(t *testing.T, ch <-chan sentEvent, within time.Duration) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("expected no event within %v, got %T to %s", within, e.ev, e.to)
	case <-time.After(within):
		// good: silence
	}
}

func collectEvents(t *testing.T, ch <-chan sentEvent, n int) []sentEvent {
	t.Helper()
	events := make([]sentEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, recvEvent(t, ch, time.Second))
	}
	return events
}

// Every round setup emits: clear-canvas x2, game-state-update x2,
// start-drawing-turn, your-word, start-guessing-turn, system chat x2.
const roundStartEvents = 9

// After a correct guess: system chat x2, leaderboard-update x2, then a full
// round setup.
const correctGuessEvents = 4 + roundStartEvents

func roomState(t *testing.T, r *Room) State {
	t.Helper()
	reply := make(chan State, 1)
	r.Inbox() <- GetState{Reply: reply}
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for room state")
		return State{} // unreachable
	}
}

// --- tests ---

func TestRoom_StartGame_RolesAndEmissions(t *testing.T) {
	r, out, _, _ := newTestRoom(t, 100)
	events := collectEvents(t, out.ch, roundStartEvents)

	state := roomState(t, r)
	if state.Drawer == state.Guesser {
		t.Fatalf("drawer and guesser must differ, both %q", state.Drawer)
	}
	if !((state.Drawer == connA && state.Guesser == connB) ||
		(state.Drawer == connB && state.Guesser == connA)) {
		t.Fatalf("roles must cover exactly the two members, got drawer=%q guesser=%q",
			state.Drawer, state.Guesser)
	}

	var clears, updates, sysMsgs int
	var drawTurnTo, guessTurnTo, wordTo string
	for _, e := range events {
		switch ev := e.ev.(type) {
		case ClearCanvas:
			clears++
		case GameStateUpdate:
			updates++
			if e.to == state.Drawer && ev.CurrentWord != "apple" {
				t.Fatalf("drawer's game-state-update missing word, got %q", ev.CurrentWord)
			}
			if e.to == state.Guesser && ev.CurrentWord != "" {
				t.Fatalf("guesser's game-state-update leaked the word %q", ev.CurrentWord)
			}
		case StartDrawingTurn:
			drawTurnTo = e.to
		case StartGuessingTurn:
			guessTurnTo = e.to
		case YourWord:
			wordTo = e.to
			if ev.Word != "apple" {
				t.Fatalf("your-word: want apple, got %q", ev.Word)
			}
		case ChatMessage:
			if ev.Username != user.System || ev.Color != user.SystemColor {
				t.Fatalf("expected system chat, got %+v", ev)
			}
			sysMsgs++
		default:
			t.Fatalf("unexpected event %T during round start", e.ev)
		}
	}
	if clears != 2 || updates != 2 || sysMsgs != 2 {
		t.Fatalf("want 2 clears, 2 updates, 2 system messages; got %d/%d/%d", clears, updates, sysMsgs)
	}
	if drawTurnTo != state.Drawer || wordTo != state.Drawer {
		t.Fatalf("drawing turn and word must go to the drawer %q, got %q/%q", state.Drawer, drawTurnTo, wordTo)
	}
	if guessTurnTo != state.Guesser {
		t.Fatalf("guessing turn must go to the guesser %q, got %q", state.Guesser, guessTurnTo)
	}
}

func TestRoom_CorrectGuess_WinsSwapsAndResets(t *testing.T) {
	r, out, _, _ := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)
	before := roomState(t, r)

	r.Inbox() <- Guess{From: before.Guesser, Text: "  APPLE  "}
	events := collectEvents(t, out.ch, correctGuessEvents)

	var sawBoard bool
	for _, e := range events {
		if lb, ok := e.ev.(LeaderboardUpdate); ok {
			sawBoard = true
			if len(lb.Entries) != 1 || lb.Entries[0].Wins != 1 {
				t.Fatalf("leaderboard after first win: got %+v", lb.Entries)
			}
		}
	}
	if !sawBoard {
		t.Fatalf("no leaderboard-update after a correct guess")
	}

	after := roomState(t, r)
	if after.Drawer != before.Guesser || after.Guesser != before.Drawer {
		t.Fatalf("roles did not swap: before drawer=%q, after drawer=%q", before.Drawer, after.Drawer)
	}
	if after.TimeRemaining != 100 {
		t.Fatalf("timer not reset to full budget, got %d", after.TimeRemaining)
	}
	if len(after.Leaderboard) != 1 || after.Leaderboard[0].Wins != 1 {
		t.Fatalf("leaderboard: got %+v", after.Leaderboard)
	}
}

func TestRoom_WrongGuess_EchoedAsChat(t *testing.T) {
	r, out, _, _ := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)
	before := roomState(t, r)

	r.Inbox() <- Guess{From: before.Guesser, Text: "pear"}

	for i := 0; i < 2; i++ {
		e := recvEvent(t, out.ch, time.Second)
		chat, ok := e.ev.(ChatMessage)
		if !ok {
			t.Fatalf("want chat echo, got %T", e.ev)
		}
		if chat.Message != "pear" || chat.Username == user.System {
			t.Fatalf("wrong guess should echo verbatim under the guesser's name, got %+v", chat)
		}
		if chat.Color != "#123456" {
			t.Fatalf("chat echo missing registry color, got %q", chat.Color)
		}
	}
	recvNoEvent(t, out.ch, 50*time.Millisecond)

	after := roomState(t, r)
	if after.Drawer != before.Drawer || len(after.Leaderboard) != 0 {
		t.Fatalf("wrong guess must not swap roles or score: %+v", after)
	}
}

func TestRoom_DrawerGuess_IsChatOnly(t *testing.T) {
	r, out, _, _ := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)
	before := roomState(t, r)

	// The drawer submitting their own word is echoed as chat, never a win.
	r.Inbox() <- Guess{From: before.Drawer, Text: "apple"}

	for i := 0; i < 2; i++ {
		e := recvEvent(t, out.ch, time.Second)
		if _, ok := e.ev.(ChatMessage); !ok {
			t.Fatalf("want chat, got %T", e.ev)
		}
	}
	recvNoEvent(t, out.ch, 50*time.Millisecond)

	after := roomState(t, r)
	if after.Drawer != before.Drawer || len(after.Leaderboard) != 0 {
		t.Fatalf("drawer self-guess must not end the round: %+v", after)
	}
}

func TestRoom_GuessFromNonMember_Dropped(t *testing.T) {
	r, out, _, _ := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)

	r.Inbox() <- Guess{From: "conn-x", Text: "apple"}
	recvNoEvent(t, out.ch, 50*time.Millisecond)

	if len(roomState(t, r).Leaderboard) != 0 {
		t.Fatalf("non-member guess must not score")
	}
}

func TestRoom_TimerExpiry_RevealsAndSwaps(t *testing.T) {
	r, out, clock, _ := newTestRoom(t, 2)
	collectEvents(t, out.ch, roundStartEvents)
	before := roomState(t, r)

	clock.current().tick()
	for i := 0; i < 2; i++ {
		e := recvEvent(t, out.ch, time.Second)
		tu, ok := e.ev.(TimerUpdate)
		if !ok || tu.Seconds != 1 {
			t.Fatalf("want timer-update 1, got %T %+v", e.ev, e.ev)
		}
	}

	clock.current().tick()
	// timer-update 0 x2, reveal x2, drawing-time-ended x2, round setup.
	events := collectEvents(t, out.ch, 6+roundStartEvents)

	var ended int
	for _, e := range events {
		if _, ok := e.ev.(DrawingTimeEnded); ok {
			ended++
		}
	}
	if ended != 2 {
		t.Fatalf("drawing-time-ended must reach both members, got %d", ended)
	}

	after := roomState(t, r)
	if after.Drawer != before.Guesser {
		t.Fatalf("timeout must swap roles")
	}
	if after.TimeRemaining != 2 {
		t.Fatalf("timer not reset after timeout, got %d", after.TimeRemaining)
	}
	if len(after.Leaderboard) != 0 {
		t.Fatalf("timeout must not change the leaderboard: %+v", after.Leaderboard)
	}
	if !clock.at(0).isStopped() {
		t.Fatalf("expired round's ticker must be stopped")
	}
}

func TestRoom_SingleLiveTickerAcrossRounds(t *testing.T) {
	r, out, clock, _ := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)

	// Two immediate round ends in a row.
	for i := 0; i < 2; i++ {
		state := roomState(t, r)
		r.Inbox() <- Guess{From: state.Guesser, Text: "apple"}
		collectEvents(t, out.ch, correctGuessEvents)
	}

	if clock.count() != 3 {
		t.Fatalf("want one ticker per round (3), got %d", clock.count())
	}
	if !clock.at(0).isStopped() || !clock.at(1).isStopped() {
		t.Fatalf("superseded tickers must be stopped")
	}
	if clock.current().isStopped() {
		t.Fatalf("live round's ticker must be running")
	}

	// N ticks produce exactly N countdown steps, not 2N.
	for i := 0; i < 3; i++ {
		clock.current().tick()
	}
	updates := 0
	for i := 0; i < 6; i++ {
		e := recvEvent(t, out.ch, time.Second)
		if _, ok := e.ev.(TimerUpdate); ok {
			updates++
		}
	}
	recvNoEvent(t, out.ch, 50*time.Millisecond)
	if updates != 6 {
		t.Fatalf("3 ticks must yield 6 timer-updates (both members), got %d", updates)
	}
	if got := roomState(t, r).TimeRemaining; got != 97 {
		t.Fatalf("want 97 seconds remaining, got %d", got)
	}
}

func TestRoom_RolesAlternateEveryRound(t *testing.T) {
	r, out, _, _ := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)

	prev := roomState(t, r)
	for round := 0; round < 4; round++ {
		r.Inbox() <- Guess{From: prev.Guesser, Text: "apple"}
		collectEvents(t, out.ch, correctGuessEvents)
		next := roomState(t, r)
		if next.Drawer != prev.Guesser || next.Guesser != prev.Drawer {
			t.Fatalf("round %d: same drawer twice in a row", round)
		}
		prev = next
	}
}

func TestRoom_StrokeRelay(t *testing.T) {
	r, out, _, _ := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)
	state := roomState(t, r)

	line := Line{X1: 1, Y1: 2, X2: 3, Y2: 4}
	r.Inbox() <- Stroke{From: state.Drawer, Line: line}

	e := recvEvent(t, out.ch, time.Second)
	draw, ok := e.ev.(Draw)
	if !ok || e.to != state.Guesser {
		t.Fatalf("stroke must relay to the guesser only, got %T to %q", e.ev, e.to)
	}
	if draw.Line != line {
		t.Fatalf("stroke must relay verbatim, got %+v", draw.Line)
	}

	// Strokes from the guesser or a non-member are dropped.
	r.Inbox() <- Stroke{From: state.Guesser, Line: line}
	r.Inbox() <- Stroke{From: "conn-x", Line: line}
	recvNoEvent(t, out.ch, 50*time.Millisecond)
}

func TestRoom_ChatBroadcastToBoth(t *testing.T) {
	r, out, _, _ := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)

	r.Inbox() <- Chat{From: connA, Text: "hello"}

	recipients := map[string]bool{}
	for i := 0; i < 2; i++ {
		e := recvEvent(t, out.ch, time.Second)
		chat, ok := e.ev.(ChatMessage)
		if !ok || chat.Username != "Alice" || chat.Message != "hello" {
			t.Fatalf("want Alice's chat to both, got %T %+v", e.ev, e.ev)
		}
		recipients[e.to] = true
	}
	if !recipients[connA] || !recipients[connB] {
		t.Fatalf("chat must reach both members, got %v", recipients)
	}

	r.Inbox() <- Chat{From: "conn-x", Text: "intruder"}
	recvNoEvent(t, out.ch, 50*time.Millisecond)
}

func TestRoom_Leave_StopsTimerAndClosesOnce(t *testing.T) {
	r, out, clock, closed := newTestRoom(t, 100)
	collectEvents(t, out.ch, roundStartEvents)
	state := roomState(t, r)

	r.Inbox() <- Leave{From: state.Drawer}

	// Departure notice to both members, then the owner callback.
	for i := 0; i < 2; i++ {
		e := recvEvent(t, out.ch, time.Second)
		chat, ok := e.ev.(ChatMessage)
		if !ok || chat.Username != user.System {
			t.Fatalf("want system departure notice, got %T", e.ev)
		}
	}
	select {
	case departed := <-closed:
		if departed != state.Drawer {
			t.Fatalf("closed with departed=%q, want %q", departed, state.Drawer)
		}
	case <-time.After(time.Second):
		t.Fatalf("room never notified its owner")
	}

	if !clock.current().isStopped() {
		t.Fatalf("teardown must stop the round ticker before deregistering")
	}

	// The loop has exited; nothing else is processed or emitted.
	r.Inbox() <- Chat{From: state.Guesser, Text: "anyone?"}
	recvNoEvent(t, out.ch, 50*time.Millisecond)
}
